package dbpool

// Option sets one session parameter on the handles a pool creates.
// Parameters that are not given keep the driver default.
type Option func(*Credentials)

// WithUser sets the session user.
func WithUser(user string) Option {
	return func(c *Credentials) { c.User = user }
}

// WithPassword sets the session password.
func WithPassword(password string) Option {
	return func(c *Credentials) { c.Password = password }
}

// WithDatabase sets the target database.
func WithDatabase(database string) Option {
	return func(c *Credentials) { c.Database = database }
}

// WithHost sets the server host.
func WithHost(host string) Option {
	return func(c *Credentials) { c.Host = host }
}

// WithPort sets the server port.
func WithPort(port int) Option {
	return func(c *Credentials) { c.Port = port }
}
