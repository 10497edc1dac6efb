package experiment

import "fmt"

// Method selects the adaptation strategy. The CLI surface speaks the
// original method names; internally everything dispatches on this enum.
type Method int

const (
	// MethodNone trains on the source and stops (wo-adapt).
	MethodNone Method = iota
	// MethodDirect self-trains once, directly on the target domain.
	MethodDirect
	// MethodSelfTrain self-trains through every intermediate domain.
	MethodSelfTrain
	// MethodGDE runs the gradual domain ensemble with a fixed momentum,
	// sweeping the momentum value.
	MethodGDE
	// MethodDAGDE runs the distance-aware gradual domain ensemble,
	// sweeping beta.
	MethodDAGDE
)

var methodNames = map[Method]string{
	MethodNone:      "wo-adapt",
	MethodDirect:    "direct-adapt",
	MethodSelfTrain: "gradual-selftrain",
	MethodGDE:       "gde",
	MethodDAGDE:     "dagde",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod maps a method name to its enum value.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("experiment: unknown method %q (want one of wo-adapt, direct-adapt, gradual-selftrain, gde, dagde)", s)
}
