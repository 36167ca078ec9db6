package hgsource

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.com/hg2git/hg2git/internal/xlog"
)

// recordSep and fieldSep delimit the `hg log` template this reader drives.
// Mercurial changeset text can contain almost anything except these two
// control bytes, so they're safe as record and field delimiters.
const (
	recordSep = "\x00"
	fieldSep  = "\x01"
)

// logTemplate renders one record per revision: rev number, node hash,
// parent node hashes (space-joined, "null"-filtered), branch, user, epoch
// seconds, timezone offset seconds, and the description, in that order.
const logTemplate = "{rev}" + fieldSep +
	"{node}" + fieldSep +
	"{parents % '{node} '}" + fieldSep +
	"{branch}" + fieldSep +
	"{author}" + fieldSep +
	"{date|hgdate}" + fieldSep +
	"{desc}" + recordSep

// CommandServerSource is the real Source, backed by a running Mercurial
// command server. Rather than checking out each revision on disk and
// diffing working copies, it asks Mercurial directly for the status and
// manifest of each revision, since the pipeline only ever needs a flat
// file-operation list, never a working tree.
type CommandServerSource struct {
	cl        *client
	revs      []revHeader
	pos       int
	prevTags  map[string]string // tag name -> node hash, from the previous revision examined
}

type revHeader struct {
	num     int64
	node    string
	parents []string
	branch  string
	author  string
	date    time.Time
	message string
}

// Open starts an hg command-server session rooted at repoPath and loads the
// full revision header list up front (cheap: a single `hg log` call),
// deferring per-revision file-operation and .hgtags work to Next.
func Open(repoPath string) (*CommandServerSource, error) {
	cl, err := newClient(repoPath)
	if err != nil {
		return nil, err
	}
	s := &CommandServerSource{cl: cl, prevTags: map[string]string{}}
	out, err := cl.run("hg", "log", "--template", logTemplate)
	if err != nil {
		cl.Close()
		return nil, err
	}
	s.revs, err = parseLog(string(out))
	if err != nil {
		cl.Close()
		return nil, err
	}
	return s, nil
}

func (s *CommandServerSource) Count() (int64, bool) {
	return int64(len(s.revs)), true
}

func (s *CommandServerSource) Close() error {
	return s.cl.Close()
}

// Next builds one full Changeset: the header parsed at Open time, plus the
// file-operation list (via `hg status`/`hg manifest`) and the .hgtags delta
// computed lazily here since both require extra command-server round trips.
func (s *CommandServerSource) Next() (*Changeset, bool, error) {
	if s.pos >= len(s.revs) {
		return nil, false, nil
	}
	h := s.revs[s.pos]
	s.pos++

	files, err := s.fileOps(h)
	if err != nil {
		return nil, false, xlog.Throw(xlog.Source, "rev %d (%s): %v", h.num, h.node, err)
	}
	tagChanges, err := s.tagChanges(h)
	if err != nil {
		return nil, false, xlog.Throw(xlog.Source, "rev %d (%s): .hgtags: %v", h.num, h.node, err)
	}

	return &Changeset{
		Rev:        h.node,
		Num:        h.num,
		Parents:    h.parents,
		Branch:     h.branch,
		Author:     h.author,
		Message:    h.message,
		Date:       h.date,
		Files:      files,
		TagChanges: tagChanges,
	}, true, nil
}

// fileOps diffs against the first parent only (the root commit has none,
// producing an add-everything diff). Merges are recorded with their full
// parent list, but the file-operation diff itself always favors the first
// parent rather than attempting an N-way reconciliation.
func (s *CommandServerSource) fileOps(h revHeader) ([]FileOp, error) {
	args := []string{"hg", "status", "--copies"}
	if len(h.parents) > 0 {
		args = append(args, "--rev", h.parents[0], "--rev", h.node)
	} else {
		args = append(args, "--change", h.node)
	}
	out, err := s.cl.run(args...)
	if err != nil {
		return nil, err
	}

	modeByPath, err := s.manifestModes(h.node)
	if err != nil {
		return nil, err
	}

	var ops []FileOp
	var pendingRename *FileOp
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "  ") {
			// Copy-source line following an 'A' status line: turns the
			// preceding add into a rename.
			if pendingRename != nil {
				pendingRename.Action = ActionRename
				pendingRename.OldPath = strings.TrimSpace(line)
				pendingRename = nil
			}
			continue
		}
		code, path := line[0], strings.TrimSpace(line[1:])
		switch code {
		case 'A':
			data, derr := s.cat(h.node, path)
			if derr != nil {
				return nil, derr
			}
			op := FileOp{Action: ActionAdd, Path: path, Mode: modeByPath[path], Data: data}
			ops = append(ops, op)
			pendingRename = &ops[len(ops)-1]
		case 'M':
			data, derr := s.cat(h.node, path)
			if derr != nil {
				return nil, derr
			}
			ops = append(ops, FileOp{Action: ActionModify, Path: path, Mode: modeByPath[path], Data: data})
			pendingRename = nil
		case 'R':
			ops = append(ops, FileOp{Action: ActionDelete, Path: path})
			pendingRename = nil
		default:
			// Clean/ignored/unknown/missing lines carry no changeset action.
			pendingRename = nil
		}
	}
	return ops, nil
}

func (s *CommandServerSource) manifestModes(rev string) (map[string]uint32, error) {
	out, err := s.cl.run("hg", "manifest", "--rev", rev, "--debug")
	if err != nil {
		return nil, err
	}
	modes := make(map[string]uint32)
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		// "<40-hex-hash> <flags> <path>", flags is "x", "l", or empty.
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 3 {
			continue
		}
		flags, path := strings.TrimSpace(fields[1]), fields[2]
		modes[path] = modeFor(flags)
	}
	return modes, nil
}

func modeFor(flags string) uint32 {
	switch {
	case strings.Contains(flags, "l"):
		return 0o120000
	case strings.Contains(flags, "x"):
		return 0o100755
	default:
		return 0o100644
	}
}

func (s *CommandServerSource) cat(rev, path string) ([]byte, error) {
	return s.cl.run("hg", "cat", "--rev", rev, path)
}

// tagChanges computes the .hgtags delta introduced at h by comparing the
// tag->node map embedded in the file at this revision against the map
// observed at the previously examined revision. Each changeset's .hgtags
// content is the authoritative update point, however the mutable file's
// history got there.
func (s *CommandServerSource) tagChanges(h revHeader) ([]TagChange, error) {
	data, err := s.cat(h.node, ".hgtags")
	if err != nil {
		// No .hgtags at this revision (most repositories, most of the
		// time): nothing changed.
		return nil, nil
	}
	current := parseHgtags(string(data))

	var changes []TagChange
	for name, node := range current {
		if prevNode, ok := s.prevTags[name]; !ok || prevNode != node {
			changes = append(changes, TagChange{Added: true, Name: name, Rev: node})
		}
	}
	for name := range s.prevTags {
		if _, ok := current[name]; !ok {
			changes = append(changes, TagChange{Added: false, Name: name})
		}
	}
	s.prevTags = current
	return changes, nil
}

// parseHgtags parses ".hgtags" content: one "<node> <name>" pair per line,
// later lines overriding earlier ones for the same tag name, matching
// Mercurial's own last-wins semantics for a tag moved within one file.
func parseHgtags(content string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		node, name := fields[0], strings.TrimSpace(fields[1])
		if node == strings.Repeat("0", 40) {
			delete(out, name) // hg's own convention for "tag removed here"
			continue
		}
		out[name] = node
	}
	return out
}

func parseLog(text string) ([]revHeader, error) {
	var out []revHeader
	for _, rec := range strings.Split(text, recordSep) {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		fields := strings.Split(rec, fieldSep)
		if len(fields) < 7 {
			return nil, fmt.Errorf("malformed log record (%d fields): %q", len(fields), rec)
		}
		num, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad revision number %q: %w", fields[0], err)
		}
		date, err := parseHgDate(fields[5])
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", fields[5], err)
		}
		var parents []string
		for _, p := range strings.Fields(fields[2]) {
			parents = append(parents, p)
		}
		out = append(out, revHeader{
			num:     num,
			node:    fields[1],
			parents: parents,
			branch:  fields[3],
			author:  fields[4],
			date:    date,
			message: strings.Join(fields[6:], fieldSep), // a literal \x01 in a message rejoins here
		})
	}
	return out, nil
}

// parseHgDate reads the "{date|hgdate}" template form: "<epoch> <tzoffset>",
// tzoffset being seconds west of UTC (HG's convention, the negation of
// Go's time.FixedZone sign).
func parseHgDate(s string) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return time.Time{}, fmt.Errorf("expected \"<epoch> <tzoffset>\", got %q", s)
	}
	epoch, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	tzOffset, err := strconv.Atoi(fields[1])
	if err != nil {
		return time.Time{}, err
	}
	loc := time.FixedZone("hg", -tzOffset)
	return time.Unix(epoch, 0).In(loc), nil
}
