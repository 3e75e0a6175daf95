package driver

// Config carries the provider-specific knobs. Every field is optional
// and its meaning can differ per driver.
type Config struct {
	Endpoint    string   `yaml:"endpoint"`
	TopK        *float32 `yaml:"topk"`
	TopP        *float32 `yaml:"topp"`
	Temperature *float32 `yaml:"temperature"`
	MinP        *float32 `yaml:"minp"`
}
