package wizard

import (
	"github.com/goccy/go-yaml"

	"github.com/arena2036-x/emc/internal/edc"
)

const (
	maskedCredentials = "******"
	noCredentials     = "<none>"
)

type yamlRegistry struct {
	URL         string `yaml:"url"`
	Credentials string `yaml:"credentials"`
}

type yamlPreview struct {
	EDC yamlEDC `yaml:"edc"`
}

type yamlEDC struct {
	Name     string        `yaml:"name"`
	Version  string        `yaml:"version"`
	Endpoint string        `yaml:"endpoint"`
	BPN      string        `yaml:"bpn"`
	Registry yamlRegistry  `yaml:"registry"`
	Submodel *yamlRegistry `yaml:"submodel,omitempty"`
}

// YAMLPreview renders the draft as the configuration the deployment will
// produce. Credentials are always masked; unset fields show placeholders.
func (d Draft) YAMLPreview() (string, error) {
	preview := yamlPreview{EDC: yamlEDC{
		Name:     orPlaceholder(d.Name, "<EDC Name>"),
		Version:  orPlaceholder(d.Version, "<Version>"),
		Endpoint: orPlaceholder(d.URL(), "<https://edc.example.com>"),
		BPN:      orPlaceholder(d.BPN, "<BPNL000000000000>"),
		Registry: yamlRegistry{
			URL:         orPlaceholder(d.Registry.URL, "<https://registry.example.com>"),
			Credentials: maskCredentials(d.Registry.Credentials),
		},
	}}
	if !d.Submodel.Empty() {
		preview.EDC.Submodel = &yamlRegistry{
			URL:         d.Submodel.URL,
			Credentials: maskCredentials(d.Submodel.Credentials),
		}
	}

	out, err := yaml.Marshal(preview)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ConnectorYAML renders an already-deployed connector in the same masked
// shape the wizard preview uses.
func ConnectorYAML(c edc.Connector) (string, error) {
	preview := yamlPreview{EDC: yamlEDC{
		Name:     c.Name,
		Version:  orPlaceholder(c.EffectiveVersion(), "<Version>"),
		Endpoint: orPlaceholder(c.URL, "<https://edc.example.com>"),
		BPN:      orPlaceholder(c.BPN, "<BPNL000000000000>"),
		Registry: yamlRegistry{URL: "<https://registry.example.com>", Credentials: noCredentials},
	}}
	if c.Config != nil {
		if r := c.Config.Registry; r != nil {
			preview.EDC.Registry = yamlRegistry{
				URL:         orPlaceholder(r.URL, "<https://registry.example.com>"),
				Credentials: maskSubResource(r),
			}
		}
		if s := c.Config.Submodel; s != nil {
			preview.EDC.Submodel = &yamlRegistry{
				URL:         s.URL,
				Credentials: maskSubResource(s),
			}
		}
	}

	out, err := yaml.Marshal(preview)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func maskSubResource(sr *edc.SubResource) string {
	if sr.Credentials != "" || sr.APIKey != "" || sr.Token != "" || sr.ClientSecret != "" {
		return maskedCredentials
	}
	return noCredentials
}

func orPlaceholder(v, placeholder string) string {
	if v == "" {
		return placeholder
	}
	return v
}

func maskCredentials(c Credentials) string {
	if c.Set() {
		return maskedCredentials
	}
	return noCredentials
}
