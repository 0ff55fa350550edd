package induce

import "github.com/ppiankov/reginduce/internal/pattern"

// Version is one recorded state of an example pattern
type Version struct {
	Phase   string
	Pattern *pattern.ExamplePattern
}

// Lineage is the append-only version list of one example pattern.
// Without debug only the latest version is retained.
type Lineage struct {
	versions []Version
	debug    bool
}

func newLineage(p *pattern.ExamplePattern, debug bool) *Lineage {
	return &Lineage{versions: []Version{{Phase: PhaseBuild, Pattern: p}}, debug: debug}
}

// Current returns the latest version
func (l *Lineage) Current() *pattern.ExamplePattern {
	return l.versions[len(l.versions)-1].Pattern
}

// Push records a new version
func (l *Lineage) Push(phase string, p *pattern.ExamplePattern) {
	v := Version{Phase: phase, Pattern: p}
	if !l.debug {
		l.versions[0] = v
		return
	}
	l.versions = append(l.versions, v)
}

// Versions returns the retained versions, oldest first
func (l *Lineage) Versions() []Version {
	return append([]Version(nil), l.versions...)
}

// Len returns the number of retained versions
func (l *Lineage) Len() int {
	return len(l.versions)
}

// fork starts a new lineage from a copy of the current version
func (l *Lineage) fork(phase string) *Lineage {
	return newLineage(l.Current().Clone(), l.debug).relabel(phase)
}

func (l *Lineage) relabel(phase string) *Lineage {
	l.versions[0].Phase = phase
	return l
}

// Trace exposes the lineage of every surviving example pattern per tier
type Trace struct {
	Tiers [][]*Lineage
}

// VersionCount returns the number of retained versions across all tiers
func (t *Trace) VersionCount() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, tier := range t.Tiers {
		for _, l := range tier {
			n += l.Len()
		}
	}
	return n
}
