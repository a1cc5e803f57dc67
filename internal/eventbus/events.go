package eventbus

// Event types published by the scheduler.
const (
	JobDispatched  = "job.dispatched"
	SpawnFailed    = "spawn.failed"
	ConfigReloaded = "config.reloaded"
	ConfigRejected = "config.rejected"
)

// Dispatch is the payload of JobDispatched. RunID ties together the
// instances started by one firing.
type Dispatch struct {
	JobID     string
	RunID     string
	Instances int
}

// SpawnFailure is the payload of SpawnFailed.
type SpawnFailure struct {
	InstanceID string
	RunID      string
	Err        error
}

// Reload is the payload of ConfigReloaded.
type Reload struct {
	Path    string
	Jobs    int
	Added   []string
	Removed []string
	Changed []string
}

// Rejection is the payload of ConfigRejected.
type Rejection struct {
	Path string
	Err  error
}
