package dataset

import (
	"cmp"
	"slices"

	"github.com/JakeFAU/kraken/internal/extract"
)

// ProfileRow summarizes a player's history in one role as it stood just
// before MatchID. Averages that no prior match could supply are null.
type ProfileRow struct {
	MatchID      string `parquet:"match_id"`
	GameCreation int64  `parquet:"game_creation"`
	PUUID        string `parquet:"puuid"`
	Role         string `parquet:"role"`

	RecentGames     int32    `parquet:"recent_games"`
	RecentWinrate   float64  `parquet:"recent_winrate"`
	AvgKills        float64  `parquet:"recent_avg_kills"`
	AvgDeaths       float64  `parquet:"recent_avg_deaths"`
	AvgAssists      float64  `parquet:"recent_avg_assists"`
	AvgGoldPerMin   *float64 `parquet:"recent_avg_gold_per_min,optional"`
	AvgDamagePerMin *float64 `parquet:"recent_avg_damage_per_min,optional"`
	AvgVisionPerMin *float64 `parquet:"recent_avg_vision_score_per_min,optional"`
	AvgCSPerMin     *float64 `parquet:"recent_avg_cs_per_min,optional"`
	AvgGameMinutes  *float64 `parquet:"recent_avg_game_duration,optional"`

	Win bool `parquet:"win"`
}

type slotKey struct {
	puuid string
	role  string
}

// Profiles emits one row per (player, role, match) once the player has
// MinMatches earlier matches in that role. Each row averages at most
// HistorySize of those earlier matches and never the match it labels.
// Output is ordered by player, role, game creation and match id.
func Profiles(rows []extract.PlayerRow, opts Options) []ProfileRow {
	groups := make(map[slotKey][]extract.PlayerRow)
	for _, r := range rows {
		if !opts.keepQueue(r.QueueID) || !isDraftRole(r.Role) {
			continue
		}
		k := slotKey{puuid: r.PUUID, role: r.Role}
		groups[k] = append(groups[k], r)
	}

	keys := make([]slotKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b slotKey) int {
		return cmp.Or(cmp.Compare(a.puuid, b.puuid), cmp.Compare(a.role, b.role))
	})

	var out []ProfileRow
	for _, k := range keys {
		history := groups[k]
		slices.SortStableFunc(history, func(a, b extract.PlayerRow) int {
			return cmp.Or(cmp.Compare(a.GameCreation, b.GameCreation), cmp.Compare(a.MatchID, b.MatchID))
		})
		for i := opts.MinMatches; i < len(history); i++ {
			window := history[max(0, i-opts.HistorySize):i]
			out = append(out, summarize(history[i], window))
		}
	}
	return out
}

func summarize(current extract.PlayerRow, window []extract.PlayerRow) ProfileRow {
	row := ProfileRow{
		MatchID:      current.MatchID,
		GameCreation: current.GameCreation,
		PUUID:        current.PUUID,
		Role:         current.Role,
		RecentGames:  int32(len(window)),
		Win:          current.Win,
	}
	var wins, kills, deaths, assists float64
	var gold, damage, vision, cs, minutes mean
	for _, w := range window {
		if w.Win {
			wins++
		}
		kills += float64(w.Kills)
		deaths += float64(w.Deaths)
		assists += float64(w.Assists)
		gold.addPtr(w.GoldPerMin)
		damage.addPtr(w.DamagePerMin)
		vision.addPtr(w.VisionScorePerMin)
		if w.GameDuration > 0 {
			m := float64(w.GameDuration) / 60
			cs.add(float64(w.TotalCS) / m)
			minutes.add(m)
		}
	}
	if n := float64(len(window)); n > 0 {
		row.RecentWinrate = wins / n
		row.AvgKills = kills / n
		row.AvgDeaths = deaths / n
		row.AvgAssists = assists / n
	}
	row.AvgGoldPerMin = gold.value()
	row.AvgDamagePerMin = damage.value()
	row.AvgVisionPerMin = vision.value()
	row.AvgCSPerMin = cs.value()
	row.AvgGameMinutes = minutes.value()
	return row
}

// mean averages the values it was given, skipping nulls.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) addPtr(v *float64) {
	if v != nil {
		m.add(*v)
	}
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

func isDraftRole(role string) bool {
	return slices.Contains(extract.DraftRoles, role)
}
