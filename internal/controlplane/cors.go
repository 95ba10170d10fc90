package controlplane

import "github.com/andresuchdata/r2bridge/internal/domain"

type corsAllowedWire struct {
	Origins []string `json:"origins"`
	Methods []string `json:"methods"`
	Headers []string `json:"headers,omitempty"`
}

type corsRuleWire struct {
	ID            string          `json:"id,omitempty"`
	Allowed       corsAllowedWire `json:"allowed"`
	ExposeHeaders []string        `json:"exposeHeaders,omitempty"`
	MaxAgeSeconds *int            `json:"maxAgeSeconds,omitempty"`
}

type corsWire struct {
	Rules []corsRuleWire `json:"rules"`
}

func corsFromDomain(cfg domain.CORSConfiguration) corsWire {
	out := corsWire{Rules: make([]corsRuleWire, 0, len(cfg.Rules))}
	for _, r := range cfg.Rules {
		methods := make([]string, len(r.AllowedMethods))
		for i, m := range r.AllowedMethods {
			methods[i] = string(m)
		}
		out.Rules = append(out.Rules, corsRuleWire{
			ID: r.ID,
			Allowed: corsAllowedWire{
				Origins: r.AllowedOrigins,
				Methods: methods,
				Headers: r.AllowedHeaders,
			},
			ExposeHeaders: r.ExposeHeaders,
			MaxAgeSeconds: r.MaxAgeSeconds,
		})
	}
	return out
}

func (w corsWire) toDomain() domain.CORSConfiguration {
	cfg := domain.CORSConfiguration{Rules: make([]domain.CORSRule, 0, len(w.Rules))}
	for _, r := range w.Rules {
		methods := make([]domain.CORSMethod, len(r.Allowed.Methods))
		for i, m := range r.Allowed.Methods {
			methods[i] = domain.CORSMethod(m)
		}
		cfg.Rules = append(cfg.Rules, domain.CORSRule{
			ID:             r.ID,
			AllowedOrigins: r.Allowed.Origins,
			AllowedMethods: methods,
			AllowedHeaders: r.Allowed.Headers,
			ExposeHeaders:  r.ExposeHeaders,
			MaxAgeSeconds:  r.MaxAgeSeconds,
		})
	}
	return cfg
}
