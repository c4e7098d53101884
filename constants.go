package structwire

// Environment variable names read by the structwire command.
const (
	// EnvProtocol selects the wire protocol ("binary" or "compact").
	EnvProtocol = "STRUCTWIRE_PROTOCOL"

	// EnvMaxDepth overrides the engine nesting ceiling.
	EnvMaxDepth = "STRUCTWIRE_MAX_DEPTH"

	// EnvRegistryPath is the sqlite file holding structural id snapshots.
	EnvRegistryPath = "STRUCTWIRE_REGISTRY_PATH"

	// EnvS3Bucket names the bucket used by the record store.
	EnvS3Bucket = "STRUCTWIRE_S3_BUCKET"

	// EnvLogLevel sets the log level (debug, info, warn, error).
	EnvLogLevel = "STRUCTWIRE_LOG_LEVEL"
)

// Default values
const (
	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = "structwire.yaml"

	// DefaultRegistryPath is the default snapshot database.
	DefaultRegistryPath = ".structwire/registry.db"

	// DefaultProtocol is the protocol used when none is configured.
	DefaultProtocol = "compact"
)
