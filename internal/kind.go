package internal

import (
	"fmt"
	"sync"
)

// Affinity is the logical thread an action has to be applied on.
type Affinity uint8

const (
	AffinityMain Affinity = iota
	AffinityGL
)

func (a Affinity) String() string {
	switch a {
	case AffinityMain:
		return "main"
	case AffinityGL:
		return "gl"
	default:
		return fmt.Sprintf("Affinity(%d)", uint8(a))
	}
}

// Kind identifies the operation an action stands for.
type Kind uint16

const (
	KindInvalid Kind = iota
	KindCreate
	KindLoad
	KindRelease
	KindTransformUpdated
	KindCameraUpdated
)

type kindInfo struct {
	name     string
	affinity Affinity
}

var (
	kindsMu sync.RWMutex
	kinds   = []kindInfo{
		KindInvalid:          {"invalid", AffinityMain},
		KindCreate:           {"create", AffinityGL},
		KindLoad:             {"load", AffinityGL},
		KindRelease:          {"release", AffinityGL},
		KindTransformUpdated: {"transform_updated", AffinityMain},
		KindCameraUpdated:    {"camera_updated", AffinityMain},
	}
)

// RegisterKind adds a new action kind with its default affinity.
func RegisterKind(name string, affinity Affinity) Kind {
	kindsMu.Lock()
	defer kindsMu.Unlock()

	for _, k := range kinds {
		if k.name == name {
			panic(fmt.Sprintf("internal: action kind %q registered twice", name))
		}
	}

	kinds = append(kinds, kindInfo{name, affinity})
	return Kind(len(kinds) - 1)
}

func (k Kind) info() (kindInfo, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	if int(k) >= len(kinds) {
		return kindInfo{}, false
	}
	return kinds[k], true
}

func (k Kind) String() string {
	if info, ok := k.info(); ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Affinity returns the thread affinity actions of this kind get by default.
func (k Kind) Affinity() Affinity {
	info, ok := k.info()
	if !ok {
		panic(fmt.Sprintf("internal: unknown action kind %d", uint16(k)))
	}
	return info.affinity
}
