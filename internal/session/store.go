package session

import (
	"errors"
	"sync"

	"alfredoptarigan/hiresense/internal/scoring"
)

var (
	// ErrStale is returned by ApplyResults when the session changed after
	// the snapshot the results were computed from.
	ErrStale = errors.New("session changed while matching")

	ErrResumeNotFound = errors.New("resume not found in session")
)

type JobDescription struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
	Content  string `json:"content"`
}

// Resume is one uploaded candidate. Filename is the name the client sent;
// Path points at the stored copy. The match fields are filled by
// ApplyResults.
type Resume struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	Path        string `json:"-"`
	ContentType string `json:"-"`

	Score         *float64      `json:"score,omitempty"`
	Prediction    scoring.Label `json:"prediction,omitempty"`
	MatchedSkills []string      `json:"matched_skills,omitempty"`
	MissingSkills []string      `json:"missing_skills,omitempty"`
}

func (r Resume) Scored() bool {
	return r.Score != nil
}

func (r Resume) clone() Resume {
	out := r
	if r.Score != nil {
		s := *r.Score
		out.Score = &s
	}
	out.MatchedSkills = append([]string(nil), r.MatchedSkills...)
	out.MissingSkills = append([]string(nil), r.MissingSkills...)
	return out
}

func (r *Resume) clearResult() {
	r.Score = nil
	r.Prediction = ""
	r.MatchedSkills = nil
	r.MissingSkills = nil
}

// Snapshot is a deep copy of the session at one generation.
type Snapshot struct {
	Generation     uint64
	JobDescription *JobDescription
	Resumes        []Resume
}

// Store is the single active working set. Every transition runs under one
// mutex and bumps the generation, so callers can compute outside the lock
// and write back only if nothing moved underneath them.
type Store struct {
	mu         sync.Mutex
	jd         *JobDescription
	resumes    []Resume
	generation uint64
}

func NewStore() *Store {
	return &Store{}
}

// ReplaceJobDescription sets the job description. Existing match results
// belong to the old one and are dropped.
func (s *Store) ReplaceJobDescription(jd JobDescription) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jd = &jd
	for i := range s.resumes {
		s.resumes[i].clearResult()
	}
	s.generation++
	return s.generation
}

// ReplaceResumes swaps in a new resume list and returns the previous one so
// the caller can remove its files.
func (s *Store) ReplaceResumes(resumes []Resume) []Resume {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.resumes
	s.resumes = make([]Resume, len(resumes))
	for i, r := range resumes {
		s.resumes[i] = r.clone()
		s.resumes[i].clearResult()
	}
	s.generation++
	return prev
}

// Clear empties the session and returns the removed resumes.
func (s *Store) Clear() []Resume {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.resumes
	s.jd = nil
	s.resumes = nil
	s.generation++
	return prev
}

// RemoveResume drops one resume by filename and returns it.
func (s *Store) RemoveResume(filename string) (Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.resumes {
		if r.Filename == filename {
			s.resumes = append(s.resumes[:i:i], s.resumes[i+1:]...)
			s.generation++
			return r, nil
		}
	}
	return Resume{}, ErrResumeNotFound
}

func (s *Store) Resume(filename string) (Resume, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.resumes {
		if r.Filename == filename {
			return r.clone(), true
		}
	}
	return Resume{}, false
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Generation: s.generation}
	if s.jd != nil {
		jd := *s.jd
		snap.JobDescription = &jd
	}
	if len(s.resumes) > 0 {
		snap.Resumes = make([]Resume, len(s.resumes))
		for i, r := range s.resumes {
			snap.Resumes[i] = r.clone()
		}
	}
	return snap
}

// ApplyResults writes a match pass back into the session. Resumes missing
// from results lose any earlier score. The upload order is kept. Returns
// ErrStale, writing nothing, if the session moved past generation.
func (s *Store) ApplyResults(generation uint64, results []scoring.Ranked) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return ErrStale
	}

	byName := make(map[string]scoring.Ranked, len(results))
	for _, r := range results {
		byName[r.Filename] = r
	}

	for i := range s.resumes {
		res, ok := byName[s.resumes[i].Filename]
		if !ok {
			s.resumes[i].clearResult()
			continue
		}
		score := res.Score
		s.resumes[i].Score = &score
		s.resumes[i].Prediction = res.Prediction
		s.resumes[i].MatchedSkills = append([]string(nil), res.MatchedSkills...)
		s.resumes[i].MissingSkills = append([]string(nil), res.MissingSkills...)
	}
	return nil
}
