package worker

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/mqttswarm/pkg/catalog"
	"github.com/getmockd/mqttswarm/pkg/client"
)

// EnvAssignment carries the YAML-encoded Assignment from driver to worker.
const EnvAssignment = "MQTTSWARM_WORKER_CONFIG"

// Assignment is the part of a run's configuration every worker shares.
type Assignment struct {
	Client              client.Config   `yaml:"client"`
	Catalog             catalog.Catalog `yaml:"catalog"`
	WaitForSubscription bool            `yaml:"waitForSubscription"`
	SubscriptionTimeout time.Duration   `yaml:"subscriptionTimeout"`
	LogLevel            string          `yaml:"logLevel"`
	LogFormat           string          `yaml:"logFormat"`
}

// Encode returns the assignment as a YAML document.
func (a Assignment) Encode() (string, error) {
	data, err := yaml.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode worker assignment: %w", err)
	}
	return string(data), nil
}

// Env returns the environment entry that hands a over to a worker process.
func (a Assignment) Env() (string, error) {
	doc, err := a.Encode()
	if err != nil {
		return "", err
	}
	return EnvAssignment + "=" + doc, nil
}

// DecodeAssignment parses a YAML document produced by Encode.
func DecodeAssignment(doc string) (Assignment, error) {
	var a Assignment
	if err := yaml.Unmarshal([]byte(doc), &a); err != nil {
		return Assignment{}, fmt.Errorf("decode worker assignment: %w", err)
	}
	return a, nil
}

// AssignmentFromEnv reads the assignment from the environment. A missing
// variable yields the zero Assignment, which runs with client defaults.
func AssignmentFromEnv() (Assignment, error) {
	doc, ok := os.LookupEnv(EnvAssignment)
	if !ok || doc == "" {
		return Assignment{}, nil
	}
	return DecodeAssignment(doc)
}

// Options builds session options for the worker at index.
func (a Assignment) Options(index int) Options {
	return Options{
		Client:              a.Client,
		Catalog:             a.Catalog.Clone(),
		WaitForSubscription: a.WaitForSubscription,
		SubscriptionTimeout: a.SubscriptionTimeout,
		Index:               index,
	}
}
