package domain

import (
	"sort"
	"strings"
)

// DefaultTeamLeaders is used when no TEAM_LEADERS configuration is supplied.
var DefaultTeamLeaders = []string{
	"Miranda Quantrill",
	"Ana Maria Lumina",
	"Judi Hampton",
	"Malgorzata Strzelecka",
	"Alina Matei",
	"Sara Joiner-Jarrett",
}

// TeamLeaderSet is the reference set role derivation runs against.
type TeamLeaderSet struct {
	names map[string]struct{}
}

func NewTeamLeaderSet(names []string) TeamLeaderSet {
	set := TeamLeaderSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set.names[name] = struct{}{}
	}
	return set
}

// ParseTeamLeaderSet reads a comma separated list of names.
func ParseTeamLeaderSet(raw string) TeamLeaderSet {
	return NewTeamLeaderSet(strings.Split(raw, ","))
}

func (s TeamLeaderSet) Contains(name string) bool {
	_, ok := s.names[strings.TrimSpace(name)]
	return ok
}

func (s TeamLeaderSet) Len() int {
	return len(s.names)
}

func (s TeamLeaderSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DeriveRole maps a roster name onto a role using membership in leaders.
func DeriveRole(name string, leaders TeamLeaderSet) Role {
	if leaders.Contains(name) {
		return RoleTeamLeader
	}
	return RoleRecruitOrAdvisor
}
