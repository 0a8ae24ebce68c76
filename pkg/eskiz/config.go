package eskiz

// Config supplies the Eskiz account credentials and sender identity.
type Config interface {
	Email() string
	Password() string
	From() string
	BaseURL() string
}

type config struct {
	email    string
	password string
	from     string
	baseURL  string
}

func NewConfig(email, password, from, baseURL string) Config {
	return &config{email: email, password: password, from: from, baseURL: baseURL}
}

func (c *config) Email() string    { return c.email }
func (c *config) Password() string { return c.password }
func (c *config) From() string     { return c.from }
func (c *config) BaseURL() string  { return c.baseURL }
