package dbpool

// ReapIdle runs one pass of the idle reaper.
func (p *Pool) ReapIdle() int {
	return p.reapIdle()
}
