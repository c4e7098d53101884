package wireerr

// Action names the engine step during which an error was raised.
type Action int8

const (
	Unknown Action = iota
	Construct
	Encode
	Decode
	Skip
	Validate
)

func (a Action) String() string {
	actions := map[Action]string{
		Unknown:   "unknown",
		Construct: "construct",
		Encode:    "encode",
		Decode:    "decode",
		Skip:      "skip",
		Validate:  "validate",
	}

	if str, ok := actions[a]; ok {
		return str
	}
	return "unknown"
}
