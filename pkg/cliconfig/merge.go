package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	mergeString(target, "host", &target.Host, source.Host, sourceType)
	mergeString(target, "username", &target.Username, source.Username, sourceType)
	mergeString(target, "password", &target.Password, source.Password, sourceType)
	mergeString(target, "rosterFile", &target.RosterFile, source.RosterFile, sourceType)
	mergeString(target, "subscribeTopic", &target.SubscribeTopic, source.SubscribeTopic, sourceType)
	mergeString(target, "logLevel", &target.LogLevel, source.LogLevel, sourceType)
	mergeString(target, "logFormat", &target.LogFormat, source.LogFormat, sourceType)

	if source.Port != 0 {
		target.Port = source.Port
		target.Sources["port"] = sourceType
	}
	if source.Clients != 0 {
		target.Clients = source.Clients
		target.Sources["clients"] = sourceType
	}
	// qos 0 is a meaningful value, so it is merged whenever the key was present.
	if source.QoS != 0 || keyIsSet(source, "qos") {
		target.QoS = source.QoS
		target.Sources["qos"] = sourceType
	}

	if source.KeepAlive != 0 {
		target.KeepAlive = source.KeepAlive
		target.Sources["keepAlive"] = sourceType
	}
	if source.SpawnInterval != 0 || keyIsSet(source, "spawnInterval") {
		target.SpawnInterval = source.SpawnInterval
		target.Sources["spawnInterval"] = sourceType
	}
	if source.InterruptGrace != 0 || keyIsSet(source, "interruptGrace") {
		target.InterruptGrace = source.InterruptGrace
		target.Sources["interruptGrace"] = sourceType
	}
	if source.SignalInterval != 0 || keyIsSet(source, "signalInterval") {
		target.SignalInterval = source.SignalInterval
		target.Sources["signalInterval"] = sourceType
	}
	if source.SubscriptionTimeout != 0 {
		target.SubscriptionTimeout = source.SubscriptionTimeout
		target.Sources["subscriptionTimeout"] = sourceType
	}
	if source.ConnectTimeout != 0 {
		target.ConnectTimeout = source.ConnectTimeout
		target.Sources["connectTimeout"] = sourceType
	}
	if source.PublishTimeout != 0 {
		target.PublishTimeout = source.PublishTimeout
		target.Sources["publishTimeout"] = sourceType
	}

	// For booleans, checking `if source.X` cannot detect an explicit false.
	// SetFields (populated during file loading) says whether the key was
	// present. Without it only true values are merged.
	if boolIsSet(source, "embeddedBroker", source.EmbeddedBroker) {
		target.EmbeddedBroker = source.EmbeddedBroker
		target.Sources["embeddedBroker"] = sourceType
	}
	if boolIsSet(source, "waitForSubscription", source.WaitForSubscription) {
		target.WaitForSubscription = source.WaitForSubscription
		target.Sources["waitForSubscription"] = sourceType
	}

	// A catalog replaces list by list, never element by element.
	if len(source.Catalog.Messages) > 0 {
		target.Catalog.Messages = append([]string(nil), source.Catalog.Messages...)
		target.Sources["catalog"] = sourceType
	}
	if len(source.Catalog.Topics) > 0 {
		target.Catalog.Topics = append([]string(nil), source.Catalog.Topics...)
		target.Sources["catalog"] = sourceType
	}
}

func mergeString(target *Config, key string, dst *string, value, sourceType string) {
	if value == "" {
		return
	}
	*dst = value
	target.Sources[key] = sourceType
}

func keyIsSet(cfg *Config, yamlKey string) bool {
	return cfg.SetFields != nil && cfg.SetFields[yamlKey]
}

// boolIsSet reports whether a boolean field should be merged.
func boolIsSet(cfg *Config, yamlKey string, value bool) bool {
	if cfg.SetFields != nil {
		return cfg.SetFields[yamlKey]
	}
	return value
}
