package lib

import (
	"fmt"
	"strconv"
)

type Switch interface {
	Get() string
	Set(value string) error
}

// Switched units expose named control switches.
type Switched interface {
	FindSwitch(name string) (Switch, error)
}

type BoolSwitch struct {
	Name string
	Data *bool
}

func (s *BoolSwitch) Get() string {
	if *s.Data {
		return "on"
	}
	return "off"
}

func (s *BoolSwitch) Set(value string) error {
	switch value {
	case "on", "1":
		*s.Data = true
	case "off", "0":
		*s.Data = false
	default:
		return fmt.Errorf("invalid switch %s setting %s", s.Name, value)
	}
	return nil
}

type IntSwitch struct {
	Name string
	Data *int
	Min  int
}

func (s *IntSwitch) Get() string {
	return strconv.Itoa(*s.Data)
}

func (s *IntSwitch) Set(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid switch %s setting %s", s.Name, value)
	}
	if n < s.Min {
		return fmt.Errorf("switch %s setting %d below minimum %d", s.Name, n, s.Min)
	}
	*s.Data = n
	return nil
}
