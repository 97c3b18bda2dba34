package workflow

import (
	"errors"
	"fmt"
)

type State int

const (
	NoImage State = iota
	Editing
	Resulted
)

func (s State) String() string {
	switch s {
	case NoImage:
		return "no_image"
	case Editing:
		return "editing"
	case Resulted:
		return "resulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Step 三步指示器里的序号: 上传 / 选择 / 结果
func (s State) Step() int {
	return int(s) + 1
}

var (
	ErrNoImage           = errors.New("no image loaded")
	ErrNoCanvas          = errors.New("canvas is not initialized")
	ErrBusy              = errors.New("a removal request is already in progress")
	ErrEmptyMask         = errors.New("please mark the areas to remove first")
	ErrInvalidTransition = errors.New("invalid state transition")
)

var transitions = map[State][]State{
	NoImage:  {Editing},
	Editing:  {Editing, Resulted, NoImage},
	Resulted: {NoImage},
}

// CanTransition 判断 from -> to 是否合法
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
