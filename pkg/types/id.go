package types

import (
	"regexp"
	"strconv"
	"strings"
)

// ID identifies a record. Task ids are numeric ("12") or carry a single
// letter suffix ("428b"). Bug ids are "b" followed by digits ("b3").
type ID string

var (
	taskIDPattern = regexp.MustCompile(`^(\d+)([a-z]?)$`)
	bugIDPattern  = regexp.MustCompile(`^b(\d+)$`)
)

// ParseID normalizes raw into an ID. Surrounding whitespace and a leading
// '#' are ignored, letters are lowercased and leading zeros dropped.
// Returns false if raw is neither a task nor a bug id.
func ParseID(raw string) (ID, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "#")
	if m := bugIDPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return "", false
		}
		return ID("b" + strconv.Itoa(n)), true
	}
	if m := taskIDPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return "", false
		}
		return ID(strconv.Itoa(n) + m[2]), true
	}
	return "", false
}

// MustParseID is ParseID for literals known to be valid. It panics otherwise.
func MustParseID(raw string) ID {
	id, ok := ParseID(raw)
	if !ok {
		panic("types: invalid id " + strconv.Quote(raw))
	}
	return id
}

// TaskID returns the ID of the numeric task n.
func TaskID(n int) ID {
	return ID(strconv.Itoa(n))
}

// BugID returns the ID of bug n.
func BugID(n int) ID {
	return ID("b" + strconv.Itoa(n))
}

// IsBug reports whether the id names a bug.
func (id ID) IsBug() bool {
	return bugIDPattern.MatchString(string(id))
}

// Number returns the numeric part of the id, or 0 if the id is malformed.
func (id ID) Number() int {
	s := strings.TrimPrefix(string(id), "b")
	s = strings.TrimRight(s, "abcdefghijklmnopqrstuvwxyz")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Suffix returns the letter suffix of a task id such as "428b", or "".
func (id ID) Suffix() string {
	if id.IsBug() {
		return ""
	}
	s := string(id)
	if s != "" && s[len(s)-1] >= 'a' && s[len(s)-1] <= 'z' {
		return s[len(s)-1:]
	}
	return ""
}

// Ref returns the id as it is written in dependency lists and messages:
// "#12" for tasks and "b3" for bugs.
func (id ID) Ref() string {
	if id.IsBug() {
		return string(id)
	}
	return "#" + string(id)
}

func (id ID) String() string {
	return string(id)
}

// CompareIDs orders tasks before bugs, then by number, then by suffix.
// It returns -1, 0 or +1.
func CompareIDs(a, b ID) int {
	if ab, bb := a.IsBug(), b.IsBug(); ab != bb {
		if ab {
			return 1
		}
		return -1
	}
	if an, bn := a.Number(), b.Number(); an != bn {
		if an < bn {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Suffix(), b.Suffix())
}
