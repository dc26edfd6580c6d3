package extract

import (
	"sort"
	"strings"

	"github.com/JakeFAU/kraken/internal/riot"
)

// Team ids used by match-v5.
const (
	BlueTeamID = 100
	RedTeamID  = 200
)

// DraftRoles lists the team positions in lobby order.
var DraftRoles = []string{"TOP", "JUNGLE", "MIDDLE", "BOTTOM", "UTILITY"}

// BasicRowFor returns puuid's row in m, if they played in it.
func BasicRowFor(m *riot.Match, puuid string) (BasicRow, bool) {
	for _, p := range m.Info.Participants {
		if p.PUUID != puuid {
			continue
		}
		return BasicRow{
			MatchID:      m.Metadata.MatchID,
			GameCreation: m.Info.GameCreation,
			QueueID:      m.Info.QueueID,
			ChampionName: p.ChampionName,
			Role:         p.Role(),
			Win:          p.Win,
			Kills:        p.Kills,
			Deaths:       p.Deaths,
			Assists:      p.Assists,
			CSTotal:      p.CS(),
			GoldEarned:   p.GoldEarned,
			GameDuration: m.Info.GameDuration,
		}, true
	}
	return BasicRow{}, false
}

// PlayerRows returns one row per participant in payload order.
func PlayerRows(m *riot.Match) []PlayerRow {
	rows := make([]PlayerRow, 0, len(m.Info.Participants))
	for _, p := range m.Info.Participants {
		c := p.Challenges
		if c == nil {
			c = &riot.Challenges{}
		}
		rows = append(rows, PlayerRow{
			PlayerDraft: PlayerDraft{
				MatchID:      m.Metadata.MatchID,
				GameCreation: m.Info.GameCreation,
				QueueID:      int32(m.Info.QueueID),
				GameVersion:  m.Info.GameVersion,
				TeamID:       int32(p.TeamID),
				PUUID:        p.PUUID,
				ChampionID:   int32(p.ChampionID),
				ChampionName: p.ChampionName,
				Role:         p.Role(),
			},
			PlayerOutcome: PlayerOutcome{
				GameDuration:         int32(m.Info.GameDuration),
				Win:                  p.Win,
				Kills:                int32(p.Kills),
				Deaths:               int32(p.Deaths),
				Assists:              int32(p.Assists),
				ChampLevel:           int32(p.ChampLevel),
				GoldEarned:           int32(p.GoldEarned),
				GoldSpent:            int32(p.GoldSpent),
				TotalMinionsKilled:   int32(p.TotalMinionsKilled),
				NeutralMinionsKilled: int32(p.NeutralMinionsKilled),
				TotalCS:              int32(p.CS()),
				DamageToChampions:    int32(p.TotalDamageDealtToChampions),
				DamageToObjectives:   int32(p.DamageDealtToObjectives),
				DamageToTurrets:      int32(p.DamageDealtToTurrets),
				TurretTakedowns:      int32(p.TurretTakedowns),
				InhibitorTakedowns:   int32(p.InhibitorTakedowns),
				VisionScore:          int32(p.VisionScore),
				WardsPlaced:          int32(p.WardsPlaced),
				WardsKilled:          int32(p.WardsKilled),
				ControlWardsPlaced:   int32(p.VisionWardsBoughtInGame),
				DamagePerMin:         c.DamagePerMinute,
				GoldPerMin:           c.GoldPerMinute,
				TeamDamagePercentage: c.TeamDamagePercentage,
				KillParticipation:    c.KillParticipation,
				KDA:                  c.KDA,
				VisionScorePerMin:    c.VisionScorePerMinute,
				LaneMinionsFirst10:   c.LaneMinionsFirst10Minutes,
				JungleCSBefore10:     c.JungleCsBefore10Minutes,
			},
		})
	}
	return rows
}

// TeamRows returns one row per side, ordered by team id. Matches without a
// teams section yield no rows.
func TeamRows(m *riot.Match) []TeamRow {
	teams := append([]riot.Team(nil), m.Info.Teams...)
	sort.SliceStable(teams, func(i, j int) bool { return teams[i].TeamID < teams[j].TeamID })

	var platform *string
	if p := m.Platform(); p != "" {
		platform = &p
	}
	duration := m.Info.GameDuration

	rows := make([]TeamRow, 0, len(teams))
	for _, team := range teams {
		var members []riot.Participant
		for _, p := range m.Info.Participants {
			if p.TeamID == team.TeamID {
				members = append(members, p)
			}
		}
		draft := TeamDraft{
			MatchID:           m.Metadata.MatchID,
			PlatformID:        platform,
			QueueID:           int32(m.Info.QueueID),
			GameVersion:       m.Info.GameVersion,
			GameCreation:      m.Info.GameCreation,
			TeamID:            int32(team.TeamID),
			TeamSide:          Side(team.TeamID),
			TopChampionID:     roleChampion(members, "TOP"),
			JungleChampionID:  roleChampion(members, "JUNGLE"),
			MiddleChampionID:  roleChampion(members, "MIDDLE"),
			BottomChampionID:  roleChampion(members, "BOTTOM"),
			UtilityChampionID: roleChampion(members, "UTILITY"),
		}
		out := TeamOutcome{GameDuration: int32(duration)}
		if team.Win {
			out.TeamWin = 1
		}
		for _, p := range members {
			out.TeamKills += int32(p.Kills)
			out.TeamDeaths += int32(p.Deaths)
			out.TeamAssists += int32(p.Assists)
			out.TeamGoldEarned += int64(p.GoldEarned)
			out.TeamDamageToChampions += int64(p.TotalDamageDealtToChampions)
			out.TeamVisionScore += int64(p.VisionScore)
			out.TeamCSTotal += int32(p.CS())
		}
		out.TeamGoldPerMin = PerMinute(out.TeamGoldEarned, duration)
		out.TeamDamagePerMin = PerMinute(out.TeamDamageToChampions, duration)
		out.TeamVisionScorePerMin = PerMinute(out.TeamVisionScore, duration)
		out.TeamCSPerMin = PerMinute(int64(out.TeamCSTotal), duration)

		obj := team.Objectives
		out.TeamTowersDestroyed = int32(obj.Tower.KillCount())
		out.TeamInhibitorsDestroyed = int32(obj.Inhibitor.KillCount())
		out.TeamDragons = int32(obj.Dragon.KillCount())
		out.TeamBarons = int32(obj.Baron.KillCount())
		out.TeamHeralds = int32(obj.RiftHerald.KillCount())
		if obj.Tower != nil && obj.Tower.Plates != nil {
			plates := int32(*obj.Tower.Plates)
			out.TeamPlates = &plates
		}
		out.FirstBlood = obj.Champion.FirstTaken()
		out.FirstTower = obj.Tower.FirstTaken()
		out.FirstInhibitor = obj.Inhibitor.FirstTaken()
		out.FirstBaron = obj.Baron.FirstTaken()
		out.FirstDragon = obj.Dragon.FirstTaken()
		out.FirstHerald = obj.RiftHerald.FirstTaken()

		rows = append(rows, TeamRow{TeamDraft: draft, TeamOutcome: out})
	}
	return rows
}

// Side names a team id.
func Side(teamID int) string {
	if teamID == BlueTeamID {
		return "blue"
	}
	return "red"
}

// PerMinute divides total by the game length in minutes; nil when the
// duration is unknown.
func PerMinute(total, durationSecs int64) *float64 {
	if durationSecs <= 0 {
		return nil
	}
	v := float64(total) / (float64(durationSecs) / 60)
	return &v
}

// roleChampion matches on teamPosition only.
func roleChampion(members []riot.Participant, role string) *int32 {
	for _, p := range members {
		if p.TeamPosition != "" && strings.EqualFold(p.TeamPosition, role) {
			id := int32(p.ChampionID)
			return &id
		}
	}
	return nil
}
