package cli

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Telemetry bool   `help:"Show timing telemetry for operations."`
	LogLevel  string `help:"Log level (trace, debug, info, warn, error). Overrides the configuration file." placeholder:"LEVEL"`
	Config    string `help:"Configuration file. Skipped when it does not exist." type:"path" default:"gains.toml" env:"GAINS_CONFIG"`
}

type Commands struct {
	Globals

	Compute ComputeCmd `cmd:"" help:"Compute realized gains and losses of a CSV ledger."`
	Check   CheckCmd   `cmd:"" help:"Validate a CSV ledger and run the engine without reporting."`
	Watch   WatchCmd   `cmd:"" help:"Recompute and report whenever the ledger changes."`
	Serve   ServeCmd   `cmd:"" help:"Serve computed gains over a JSON API."`
	History HistoryCmd `cmd:"" help:"List archived runs or show the records of one run."`
	Dump    DumpCmd    `cmd:"" help:"Print the parsed transaction records of a CSV ledger."`
}
