package lib

// Sim holds run-wide simulation state shared between the driver and the
// simulated units. Configuration is parsed once, before any unit is
// constructed, and passed in explicitly rather than kept in globals.
//
// A Sim and the units attached to it are owned by a single goroutine for
// the life of the run.
type Sim struct {
	Cfg Config

	finished bool
}

func NewSim(cfg Config) *Sim {
	return &Sim{Cfg: cfg}
}

// Finish requests the end of the simulation. The driver polls GotFinish
// once per full clock cycle and stops stepping when it is set.
func (s *Sim) Finish() {
	s.finished = true
}

// GotFinish reports whether a finish request is pending.
func (s *Sim) GotFinish() bool {
	return s.finished
}
