package bench

import "fmt"

// State is a step of one orchestrator run.
type State uint8

const (
	Idle State = iota
	SelectStrategy
	CacheHit
	CacheMiss
	GenerateItems
	Validate
	StoreCache
	BatchReady
	HandOff
	Aborted
)

var stateNames = [...]string{
	Idle:           "Idle",
	SelectStrategy: "SelectStrategy",
	CacheHit:       "CacheHit",
	CacheMiss:      "CacheMiss",
	GenerateItems:  "GenerateItems",
	Validate:       "Validate",
	StoreCache:     "StoreCache",
	BatchReady:     "BatchReady",
	HandOff:        "HandOff",
	Aborted:        "Aborted",
}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("State(%d)", uint8(s))
}

// transitions lists the legal successors of each state. Any state before
// BatchReady may abort.
var transitions = map[State][]State{
	Idle:           {SelectStrategy},
	SelectStrategy: {CacheHit, CacheMiss, Aborted},
	CacheHit:       {BatchReady},
	CacheMiss:      {GenerateItems, Aborted},
	GenerateItems:  {Validate, Aborted},
	Validate:       {StoreCache, Aborted},
	StoreCache:     {BatchReady},
	BatchReady:     {HandOff},
	HandOff:        {Aborted},
}

// canTransition reports whether to may follow from.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}

	return false
}
