// Package revert finds commits that likely belong to a work unit so a human
// can confirm which ones to revert. It only reads history; it never runs a
// mutating git command.
package revert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"

	logFormat = "--format=%H%x1f%aI%x1f%s%x1f%b%x1e"

	// minTermLength drops phase and task names too short to match meaningfully.
	minTermLength = 4
)

// Commit is one entry of git history.
type Commit struct {
	Hash       string    `json:"hash"`
	AuthoredAt time.Time `json:"authored_at"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body,omitempty"`
}

// GitLog lists commits authored at or after since.
type GitLog interface {
	Log(ctx context.Context, since time.Time) ([]Commit, error)
}

// ExecGit reads history by running git in Dir.
type ExecGit struct {
	Dir string
}

// Log runs git log and parses its output.
func (g ExecGit) Log(ctx context.Context, since time.Time) ([]Commit, error) {
	cmd := exec.CommandContext(ctx, "git", "log", "--since="+since.UTC().Format(time.RFC3339), logFormat)
	cmd.Dir = g.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log in %s: %w\n%s", g.Dir, err, strings.TrimSpace(stderr.String()))
	}
	return ParseLog(out)
}

// ParseLog decodes output produced with the ExecGit log format.
func ParseLog(out []byte) ([]Commit, error) {
	var commits []Commit
	for _, record := range strings.Split(string(out), recordSep) {
		record = strings.TrimLeft(record, "\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSep, 4)
		if len(fields) != 4 {
			return nil, fmt.Errorf("parse git log: expected 4 fields, got %d", len(fields))
		}
		at, err := time.Parse(time.RFC3339, fields[1])
		if err != nil {
			return nil, fmt.Errorf("parse git log: commit %s: %w", fields[0], err)
		}
		commits = append(commits, Commit{
			Hash:       fields[0],
			AuthoredAt: at,
			Subject:    fields[2],
			Body:       strings.TrimSpace(fields[3]),
		})
	}
	return commits, nil
}

// Hints adds caller-supplied search terms, such as a branch name.
type Hints struct {
	Terms []string
}

// Candidate is a commit that probably belongs to the unit.
type Candidate struct {
	Commit  Commit   `json:"commit"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Score weights.
const (
	scoreID     = 5
	scoreTerm   = 3
	scoreWindow = 1
)

// FindCandidates scores commits against the unit and its plan. Commits scoring
// more than 1 are returned, best first, newest first among equals.
func FindCandidates(unit model.WorkUnit, p plan.Plan, commits []Commit, hints Hints) []Candidate {
	terms := searchTerms(p, hints)
	id := strings.ToLower(unit.ID)

	var out []Candidate
	for _, c := range commits {
		var (
			score   int
			reasons []string
		)
		message := strings.ToLower(c.Subject + "\n" + c.Body)
		if id != "" && strings.Contains(message, id) {
			score += scoreID
			reasons = append(reasons, fmt.Sprintf("message mentions %s", unit.ID))
		}
		subject := strings.ToLower(c.Subject)
		for _, term := range terms {
			if strings.Contains(subject, strings.ToLower(term)) {
				score += scoreTerm
				reasons = append(reasons, fmt.Sprintf("subject mentions %q", term))
				break
			}
		}
		if !c.AuthoredAt.Before(unit.CreatedAt) && !c.AuthoredAt.After(unit.UpdatedAt) {
			score += scoreWindow
			reasons = append(reasons, "authored while the unit was active")
		}
		if score > 1 {
			out = append(out, Candidate{Commit: c, Score: score, Reasons: reasons})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].Commit.AuthoredAt.Equal(out[j].Commit.AuthoredAt) {
			return out[i].Commit.AuthoredAt.After(out[j].Commit.AuthoredAt)
		}
		return out[i].Commit.Hash < out[j].Commit.Hash
	})
	return out
}

// searchTerms collects hint terms, phase names and task descriptions.
func searchTerms(p plan.Plan, hints Hints) []string {
	var terms []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if len(s) < minTermLength || seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, s)
	}
	for _, h := range hints.Terms {
		add(h)
	}
	for _, ph := range p.Phases {
		add(ph.Name)
	}
	plan.Walk(p, func(_ plan.TaskPath, t plan.Task) bool {
		add(t.Description)
		return true
	})
	return terms
}
