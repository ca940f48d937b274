package lib

// SignalDecl describes one declared trace signal.
type SignalDecl struct {
	Name string
	Bits int
}

// Probe is an in-memory Tracer for inspection. It keeps declared signals in
// declaration order and the most recent value logged for each, so the
// monitor and the signal listing can look at the model without a waveform
// file.
type Probe struct {
	decls   []SignalDecl
	index   map[string]int
	values  map[string]int64
	updates []func()
	time    uint64
}

func NewProbe() *Probe {
	return &Probe{
		index:  make(map[string]int),
		values: make(map[string]int64),
	}
}

func (p *Probe) Declare(signalName string, bits int) {
	if _, ok := p.index[signalName]; ok {
		return
	}
	p.index[signalName] = len(p.decls)
	p.decls = append(p.decls, SignalDecl{Name: signalName, Bits: bits})
}

func (p *Probe) RegisterValueCallback(update func()) {
	p.updates = append(p.updates, update)
}

func (p *Probe) Dump(t uint64) {
	p.time = t
	p.Sample()
}

// Sample polls all registered values without moving the time cursor.
func (p *Probe) Sample() {
	for _, update := range p.updates {
		update()
	}
}

func (p *Probe) LogValue(signalName string, bits int, value int64) {
	p.values[signalName] = value
}

// Signals returns declared signals in declaration order.
func (p *Probe) Signals() []SignalDecl {
	return p.decls
}

// Value returns the most recently logged value of a signal.
func (p *Probe) Value(signalName string) (int64, bool) {
	v, ok := p.values[signalName]
	return v, ok
}

// Time returns the current time cursor.
func (p *Probe) Time() uint64 {
	return p.time
}
