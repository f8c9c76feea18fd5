// Package linkclass buckets a meeting row's links into the four
// document roles: agenda, minutes, packet, video. Each link is
// classified at most once and each role keeps at most one URL.
package linkclass

import "strings"

// Candidate is one link pulled from a meeting row. Label carries the
// structural hint (column header, list class) when the page provides
// one; Text is the anchor text.
type Candidate struct {
	URL   string
	Text  string
	Label string
}

// Result holds the winning URL per role. Empty string means the row
// had no link for that role.
type Result struct {
	Agenda  string
	Minutes string
	Packet  string
	Video   string
}

type role int

const (
	roleNone role = iota
	roleAgenda
	roleMinutes
	rolePacket
	roleVideo
)

// URL path fragments that identify a role regardless of link text.
var pathPatterns = []struct {
	fragment string
	role     role
}{
	{"agendaviewer.php", roleAgenda},
	{"minutesviewer.php", roleMinutes},
	{"mediaplayer.php", roleVideo},
	{"viewevent.php", roleVideo},
}

// Classify assigns each candidate to at most one role, in priority
// order structural label, anchor text, then URL path pattern. The
// first candidate claiming a role keeps it.
func Classify(candidates []Candidate) Result {
	var out Result
	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		r := classifyOne(c)
		if r == roleNone {
			continue
		}
		switch r {
		case roleAgenda:
			if out.Agenda == "" {
				out.Agenda = c.URL
			}
		case roleMinutes:
			if out.Minutes == "" {
				out.Minutes = c.URL
			}
		case rolePacket:
			if out.Packet == "" {
				out.Packet = c.URL
			}
		case roleVideo:
			if out.Video == "" {
				out.Video = c.URL
			}
		}
	}
	return resolveCollisions(out)
}

func classifyOne(c Candidate) role {
	if r := fromText(c.Label); r != roleNone {
		return r
	}
	if r := fromText(c.Text); r != roleNone {
		return r
	}
	lower := strings.ToLower(c.URL)
	for _, p := range pathPatterns {
		if strings.Contains(lower, p.fragment) {
			return p.role
		}
	}
	return roleNone
}

func fromText(s string) role {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return roleNone
	}
	// "agenda packet" is a packet, so the packet check runs first.
	switch {
	case strings.Contains(t, "packet"):
		return rolePacket
	case strings.Contains(t, "agenda"):
		return roleAgenda
	case strings.Contains(t, "minutes"):
		return roleMinutes
	case strings.Contains(t, "video"), strings.Contains(t, "media"):
		return roleVideo
	}
	return roleNone
}

// resolveCollisions handles rows where agenda and minutes resolved to
// the same URL, which happens when both anchors point at a shared
// landing page. The viewer-specific URL is trusted; otherwise minutes
// is cleared because agenda is the more common document.
func resolveCollisions(r Result) Result {
	if r.Agenda == "" || r.Agenda != r.Minutes {
		return r
	}
	lower := strings.ToLower(r.Agenda)
	switch {
	case strings.Contains(lower, "minutesviewer.php"):
		r.Agenda = ""
	default:
		r.Minutes = ""
	}
	return r
}
