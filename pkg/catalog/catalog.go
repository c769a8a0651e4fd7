// Package catalog holds the canned messages and topics workers publish.
package catalog

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// DefaultSubscribeTopic is the topic every worker subscribes to once connected.
const DefaultSubscribeTopic = "my/topic"

var (
	defaultMessages = []string{"Doing", "Foo", "bar", "angola", "plant"}
	defaultTopics   = []string{"sensors/home", "devices/speakers", "/bluetooth", "/"}
)

// Catalog is an ordered set of message payloads and publish topics.
type Catalog struct {
	Messages []string `json:"messages" yaml:"messages"`
	Topics   []string `json:"topics" yaml:"topics"`
}

// Default returns a copy of the built-in catalog.
func Default() Catalog {
	return Catalog{
		Messages: append([]string(nil), defaultMessages...),
		Topics:   append([]string(nil), defaultTopics...),
	}
}

// Clone returns a deep copy of c.
func (c Catalog) Clone() Catalog {
	return Catalog{
		Messages: append([]string(nil), c.Messages...),
		Topics:   append([]string(nil), c.Topics...),
	}
}

// IsEmpty reports whether c has neither messages nor topics.
func (c Catalog) IsEmpty() bool {
	return len(c.Messages) == 0 && len(c.Topics) == 0
}

// Validate checks that c can be drawn from.
func (c Catalog) Validate() error {
	if len(c.Messages) == 0 {
		return errors.New("catalog has no messages")
	}
	if len(c.Topics) == 0 {
		return errors.New("catalog has no topics")
	}
	for i, m := range c.Messages {
		if m == "" {
			return fmt.Errorf("messages[%d]: empty message", i)
		}
	}
	for i, t := range c.Topics {
		if err := ValidatePublishTopic(t); err != nil {
			return fmt.Errorf("topics[%d]: %w", i, err)
		}
	}
	return nil
}

// Pick draws one topic and one message uniformly at random.
// A nil r uses the process-wide source.
func (c Catalog) Pick(r *rand.Rand) (topic, message string) {
	return c.Topics[intN(r, len(c.Topics))], c.Messages[intN(r, len(c.Messages))]
}

func intN(r *rand.Rand, n int) int {
	if r == nil {
		return rand.IntN(n)
	}
	return r.IntN(n)
}

// ValidatePublishTopic checks a topic name is usable in a PUBLISH packet:
// non-empty, no wildcards, no NUL, at most 65535 bytes.
func ValidatePublishTopic(topic string) error {
	switch {
	case topic == "":
		return errors.New("topic is empty")
	case len(topic) > 65535:
		return errors.New("topic exceeds 65535 bytes")
	case strings.ContainsAny(topic, "+#"):
		return fmt.Errorf("topic %q contains a wildcard", topic)
	case strings.ContainsRune(topic, 0):
		return fmt.Errorf("topic %q contains NUL", topic)
	}
	return nil
}
