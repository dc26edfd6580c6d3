package dataset

import (
	"cmp"
	"slices"

	"github.com/JakeFAU/kraken/internal/extract"
)

// Slot is one lane of one side in champion select.
type Slot struct {
	ChampionID *int32  `parquet:"champion_id,optional"`
	PUUID      *string `parquet:"puuid,optional"`

	RecentGames        *int32   `parquet:"recent_games,optional"`
	RecentWinrate      *float64 `parquet:"recent_winrate,optional"`
	RecentGoldPerMin   *float64 `parquet:"recent_gold_per_min,optional"`
	RecentDamagePerMin *float64 `parquet:"recent_damage_per_min,optional"`
	RecentVisionPerMin *float64 `parquet:"recent_vision_per_min,optional"`
}

// Lineup is a side's five lanes.
type Lineup struct {
	Top     Slot `parquet:"top"`
	Jungle  Slot `parquet:"jungle"`
	Middle  Slot `parquet:"middle"`
	Bottom  Slot `parquet:"bottom"`
	Utility Slot `parquet:"utility"`
}

func (l *Lineup) slot(role string) *Slot {
	switch role {
	case "TOP":
		return &l.Top
	case "JUNGLE":
		return &l.Jungle
	case "MIDDLE":
		return &l.Middle
	case "BOTTOM":
		return &l.Bottom
	case "UTILITY":
		return &l.Utility
	}
	return nil
}

// LobbyRow is one match as known before it started, labelled with the
// winning side.
type LobbyRow struct {
	MatchID      string `parquet:"match_id"`
	QueueID      int32  `parquet:"queue_id"`
	GameVersion  string `parquet:"game_version"`
	GameCreation int64  `parquet:"game_creation"`

	Blue Lineup `parquet:"blue"`
	Red  Lineup `parquet:"red"`

	BlueWin int32 `parquet:"blue_win"`
}

// LobbyStats counts matches left out of a lobby build.
type LobbyStats struct {
	Unlabeled int
}

type profileKey struct {
	puuid   string
	role    string
	matchID string
}

// Lobbies builds one row per labelled match. players only carries draft
// columns, so no feature can come from the match being labelled. profiles
// may be nil; when given, a slot is joined to the profile its player had
// in that role going into the match.
func Lobbies(players []extract.PlayerDraft, labels []extract.TeamLabel, profiles []ProfileRow, opts Options) ([]LobbyRow, LobbyStats) {
	blueWin := make(map[string]int32, len(labels)/2)
	for _, l := range labels {
		switch l.TeamID {
		case extract.BlueTeamID:
			blueWin[l.MatchID] = l.TeamWin
		case extract.RedTeamID:
			if _, ok := blueWin[l.MatchID]; !ok {
				blueWin[l.MatchID] = 1 - l.TeamWin
			}
		}
	}

	history := make(map[profileKey]*ProfileRow, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		history[profileKey{puuid: p.PUUID, role: p.Role, matchID: p.MatchID}] = p
	}

	lobbies := make(map[string]*LobbyRow)
	var stats LobbyStats
	unlabeled := make(map[string]bool)
	for _, p := range players {
		if !opts.keepQueue(p.QueueID) {
			continue
		}
		label, ok := blueWin[p.MatchID]
		if !ok {
			if !unlabeled[p.MatchID] {
				unlabeled[p.MatchID] = true
				stats.Unlabeled++
			}
			continue
		}
		row, ok := lobbies[p.MatchID]
		if !ok {
			row = &LobbyRow{
				MatchID:      p.MatchID,
				QueueID:      p.QueueID,
				GameVersion:  p.GameVersion,
				GameCreation: p.GameCreation,
				BlueWin:      label,
			}
			lobbies[p.MatchID] = row
		}

		var side *Lineup
		switch p.TeamID {
		case extract.BlueTeamID:
			side = &row.Blue
		case extract.RedTeamID:
			side = &row.Red
		default:
			continue
		}
		slot := side.slot(p.Role)
		if slot == nil || slot.ChampionID != nil {
			continue
		}
		champ, puuid := p.ChampionID, p.PUUID
		slot.ChampionID = &champ
		slot.PUUID = &puuid
		if prof, ok := history[profileKey{puuid: p.PUUID, role: p.Role, matchID: p.MatchID}]; ok {
			games, winrate := prof.RecentGames, prof.RecentWinrate
			slot.RecentGames = &games
			slot.RecentWinrate = &winrate
			slot.RecentGoldPerMin = prof.AvgGoldPerMin
			slot.RecentDamagePerMin = prof.AvgDamagePerMin
			slot.RecentVisionPerMin = prof.AvgVisionPerMin
		}
	}

	out := make([]LobbyRow, 0, len(lobbies))
	for _, row := range lobbies {
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b LobbyRow) int {
		return cmp.Compare(a.MatchID, b.MatchID)
	})
	return out, stats
}

// TeamOutcomes keeps the side rows of the configured queue, ordered by
// match and team.
func TeamOutcomes(rows []extract.TeamRow, opts Options) []extract.TeamRow {
	out := make([]extract.TeamRow, 0, len(rows))
	for _, r := range rows {
		if opts.keepQueue(r.QueueID) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b extract.TeamRow) int {
		return cmp.Or(cmp.Compare(a.MatchID, b.MatchID), cmp.Compare(a.TeamID, b.TeamID))
	})
	return out
}
