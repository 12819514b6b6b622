package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Subscription names one channel the retriever watches.
type Subscription struct {
	Channel string `yaml:"channel"`
	Type    string `yaml:"type"`
}

// LoadSubscriptions reads the watched-channel list from a YAML file.
// Entries without a type default to "youtube".
func LoadSubscriptions(path string) ([]Subscription, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subscriptions file: %w", err)
	}

	var parsed struct {
		Subscriptions []Subscription `yaml:"subscriptions"`
	}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse subscriptions file: %w", err)
	}

	subs := make([]Subscription, 0, len(parsed.Subscriptions))
	for i, sub := range parsed.Subscriptions {
		sub.Channel = strings.TrimSpace(sub.Channel)
		if sub.Channel == "" {
			return nil, fmt.Errorf("subscription %d has no channel", i)
		}
		if strings.TrimSpace(sub.Type) == "" {
			sub.Type = "youtube"
		}
		subs = append(subs, sub)
	}

	if len(subs) == 0 {
		return nil, fmt.Errorf("subscriptions file %s lists no channels", path)
	}

	return subs, nil
}
