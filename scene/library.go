package scene

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AnatoleLucet/sigl"
)

// ProgramLibrary is a bounded cache of named shader programs. Programs
// pushed out of it raise Release once no material uses them anymore. Every
// program of the library propagates into its notifier, so draining the
// library frees evicted programs that no geometry reaches.
type ProgramLibrary struct {
	*sigl.Notifier

	scene *Scene
	cache *lru.Cache[string, *ShaderProgram]
}

func (s *Scene) newProgramLibrary(size int) (*ProgramLibrary, error) {
	l := &ProgramLibrary{
		Notifier: s.graph.NewNotifier("programs", nil),
		scene:    s,
	}

	cache, err := lru.NewWithEvict(size, func(name string, p *ShaderProgram) {
		s.lg.Debug("program evicted", "program", name, "users", p.Users())
		p.evict()
	})
	if err != nil {
		return nil, err
	}
	l.cache = cache

	return l, nil
}

// Program returns the program cached under name, building it from src when
// missing.
func (l *ProgramLibrary) Program(name string, src ProgramSource) *ShaderProgram {
	if p, ok := l.cache.Get(name); ok {
		return p
	}

	p := l.scene.NewShaderProgram(name, src)
	p.ConnectTo(l.Notifier)
	l.cache.Add(name, p)

	return p
}

func (l *ProgramLibrary) Get(name string) (*ShaderProgram, bool) {
	return l.cache.Get(name)
}

// Remove drops name from the library. The program is released when its
// last material lets go of it.
func (l *ProgramLibrary) Remove(name string) bool {
	return l.cache.Remove(name)
}

func (l *ProgramLibrary) Len() int {
	return l.cache.Len()
}

// Purge drops every cached program.
func (l *ProgramLibrary) Purge() {
	l.cache.Purge()
}
