package riot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/kraken/internal/kraken"
)

// Account is the account-v1 payload.
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// LeagueEntry is one league-v4 ranked entry.
type LeagueEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// Match is the subset of match-v5 consumed by the frontier and the extractors.
// Stored files keep the full, unmodified payload.
type Match struct {
	Metadata Metadata `json:"metadata"`
	Info     Info     `json:"info"`
}

// Metadata lists the match id and participant PUUIDs.
type Metadata struct {
	MatchID      string   `json:"matchId"`
	PlatformID   string   `json:"platformId"`
	Participants []string `json:"participants"`
}

// Info carries match timing and per-participant data.
type Info struct {
	GameCreation int64         `json:"gameCreation"`
	GameDuration int64         `json:"gameDuration"`
	GameVersion  string        `json:"gameVersion"`
	QueueID      int           `json:"queueId"`
	PlatformID   string        `json:"platformId"`
	Participants []Participant `json:"participants"`
	Teams        []Team        `json:"teams"`
}

// Participant is one player's end-of-game record.
type Participant struct {
	PUUID                       string      `json:"puuid"`
	TeamID                      int         `json:"teamId"`
	ChampionID                  int         `json:"championId"`
	ChampionName                string      `json:"championName"`
	TeamPosition                string      `json:"teamPosition"`
	IndividualPosition          string      `json:"individualPosition"`
	Win                         bool        `json:"win"`
	Kills                       int         `json:"kills"`
	Deaths                      int         `json:"deaths"`
	Assists                     int         `json:"assists"`
	ChampLevel                  int         `json:"champLevel"`
	GoldEarned                  int         `json:"goldEarned"`
	GoldSpent                   int         `json:"goldSpent"`
	TotalMinionsKilled          int         `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int         `json:"neutralMinionsKilled"`
	TotalDamageDealtToChampions int         `json:"totalDamageDealtToChampions"`
	DamageDealtToObjectives     int         `json:"damageDealtToObjectives"`
	DamageDealtToTurrets        int         `json:"damageDealtToTurrets"`
	TurretTakedowns             int         `json:"turretTakedowns"`
	InhibitorTakedowns          int         `json:"inhibitorTakedowns"`
	VisionScore                 int         `json:"visionScore"`
	WardsPlaced                 int         `json:"wardsPlaced"`
	WardsKilled                 int         `json:"wardsKilled"`
	VisionWardsBoughtInGame     int         `json:"visionWardsBoughtInGame"`
	Challenges                  *Challenges `json:"challenges"`
}

// Challenges holds the derived metrics Riot attaches to most modern matches.
// Every field is nil when absent from the payload.
type Challenges struct {
	DamagePerMinute           *float64 `json:"damagePerMinute"`
	GoldPerMinute             *float64 `json:"goldPerMinute"`
	TeamDamagePercentage      *float64 `json:"teamDamagePercentage"`
	KillParticipation         *float64 `json:"killParticipation"`
	KDA                       *float64 `json:"kda"`
	VisionScorePerMinute      *float64 `json:"visionScorePerMinute"`
	LaneMinionsFirst10Minutes *float64 `json:"laneMinionsFirst10Minutes"`
	JungleCsBefore10Minutes   *float64 `json:"jungleCsBefore10Minutes"`
}

// Team is one side's result and objective tallies.
type Team struct {
	TeamID     int        `json:"teamId"`
	Win        bool       `json:"win"`
	Objectives Objectives `json:"objectives"`
}

// Objectives groups the per-objective tallies of a team.
type Objectives struct {
	Baron      *Objective `json:"baron"`
	Champion   *Objective `json:"champion"`
	Dragon     *Objective `json:"dragon"`
	Inhibitor  *Objective `json:"inhibitor"`
	RiftHerald *Objective `json:"riftHerald"`
	Tower      *Objective `json:"tower"`
}

// Objective is a kill count plus whether the team took it first.
type Objective struct {
	First  *bool `json:"first"`
	Kills  int   `json:"kills"`
	Plates *int  `json:"plates"`
}

// KillCount returns the objective's kill count, zero when o is nil.
func (o *Objective) KillCount() int {
	if o == nil {
		return 0
	}
	return o.Kills
}

// FirstTaken reports whether the team took the objective first; nil when the
// payload does not say.
func (o *Objective) FirstTaken() *bool {
	if o == nil {
		return nil
	}
	return o.First
}

// Role returns the normalized lane, preferring teamPosition.
func (p Participant) Role() string {
	role := strings.TrimSpace(p.TeamPosition)
	if role == "" {
		role = strings.TrimSpace(p.IndividualPosition)
	}
	return strings.ToUpper(role)
}

// CS is lane plus jungle minions.
func (p Participant) CS() int {
	return p.TotalMinionsKilled + p.NeutralMinionsKilled
}

// ParticipantPUUIDs lists every participant, preferring metadata ordering.
func (m *Match) ParticipantPUUIDs() []string {
	if len(m.Metadata.Participants) > 0 {
		return m.Metadata.Participants
	}
	out := make([]string, 0, len(m.Info.Participants))
	for _, p := range m.Info.Participants {
		out = append(out, p.PUUID)
	}
	return out
}

// RoleOf returns the role played by puuid in m, or "" when unknown.
func (m *Match) RoleOf(puuid string) string {
	for _, p := range m.Info.Participants {
		if p.PUUID == puuid {
			return p.Role()
		}
	}
	return ""
}

// Platform returns the platform id from metadata or info.
func (m *Match) Platform() string {
	if m.Metadata.PlatformID != "" {
		return m.Metadata.PlatformID
	}
	return m.Info.PlatformID
}

var errNoParticipants = errors.New("match has no participants")

// DecodeMatch parses raw match-v5 JSON. fallbackID names the match when the
// payload omits metadata.matchId (stored files are named after it).
func DecodeMatch(raw []byte, fallbackID string) (*Match, error) {
	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &kraken.ParseError{MatchID: fallbackID, Err: err}
	}
	if m.Metadata.MatchID == "" {
		m.Metadata.MatchID = fallbackID
	}
	if m.Metadata.MatchID == "" {
		return nil, &kraken.ParseError{MatchID: fallbackID, Err: errors.New("missing metadata.matchId")}
	}
	if len(m.Info.Participants) == 0 {
		return nil, &kraken.ParseError{MatchID: m.Metadata.MatchID, Err: errNoParticipants}
	}
	for i, p := range m.Info.Participants {
		if p.PUUID == "" {
			return nil, &kraken.ParseError{
				MatchID: m.Metadata.MatchID,
				Err:     fmt.Errorf("participant %d has no puuid", i),
			}
		}
	}
	return &m, nil
}
