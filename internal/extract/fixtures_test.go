package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/kraken/internal/matchstore"
)

var lanes = []string{"TOP", "JUNGLE", "MIDDLE", "BOTTOM", "UTILITY"}

// fixtureMatch builds a ten-player match. blueWins picks the winner;
// withChallenges controls whether derived metrics are present.
func fixtureMatch(id string, created int64, blueWins, withChallenges bool) map[string]any {
	var participants []map[string]any
	for i := range 10 {
		team := 100
		if i >= 5 {
			team = 200
		}
		p := map[string]any{
			"puuid":                       fmt.Sprintf("%s-p%d", id, i),
			"teamId":                      team,
			"championId":                  100 + i,
			"championName":                fmt.Sprintf("Champ%d", i),
			"teamPosition":                lanes[i%5],
			"win":                         (team == 100) == blueWins,
			"kills":                       i,
			"deaths":                      1,
			"assists":                     2 * i,
			"champLevel":                  15,
			"goldEarned":                  1000 * (i + 1),
			"goldSpent":                   900 * (i + 1),
			"totalMinionsKilled":          100,
			"neutralMinionsKilled":        10,
			"totalDamageDealtToChampions": 5000,
			"damageDealtToObjectives":     800,
			"damageDealtToTurrets":        300,
			"turretTakedowns":             1,
			"inhibitorTakedowns":          0,
			"visionScore":                 20,
			"wardsPlaced":                 8,
			"wardsKilled":                 2,
			"visionWardsBoughtInGame":     3,
		}
		if withChallenges {
			p["challenges"] = map[string]any{
				"damagePerMinute":           166.5,
				"goldPerMinute":             400.25,
				"teamDamagePercentage":      0.2,
				"killParticipation":         0.5,
				"kda":                       3.5,
				"visionScorePerMinute":      0.66,
				"laneMinionsFirst10Minutes": 70,
				"jungleCsBefore10Minutes":   4,
			}
		}
		participants = append(participants, p)
	}
	blueFirst := true
	return map[string]any{
		"metadata": map[string]any{"matchId": id, "platformId": "EUW1"},
		"info": map[string]any{
			"gameCreation": created,
			"gameDuration": 1800,
			"gameVersion":  "14.5.1",
			"queueId":      420,
			"participants": participants,
			"teams": []map[string]any{
				{
					"teamId": 200,
					"win":    !blueWins,
					"objectives": map[string]any{
						"tower":    map[string]any{"first": !blueFirst, "kills": 3},
						"champion": map[string]any{"first": !blueFirst, "kills": 20},
					},
				},
				{
					"teamId": 100,
					"win":    blueWins,
					"objectives": map[string]any{
						"baron":      map[string]any{"first": blueFirst, "kills": 1},
						"champion":   map[string]any{"first": blueFirst, "kills": 25},
						"dragon":     map[string]any{"first": blueFirst, "kills": 3},
						"inhibitor":  map[string]any{"first": blueFirst, "kills": 1},
						"riftHerald": map[string]any{"first": blueFirst, "kills": 1},
						"tower":      map[string]any{"first": blueFirst, "kills": 8, "plates": 4},
					},
				},
			},
		},
	}
}

func newCorpus(t *testing.T, matches map[string]map[string]any, raw map[string]string) *matchstore.Store {
	t.Helper()
	store, err := matchstore.New(matchstore.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	for id, m := range matches {
		data, err := json.Marshal(m)
		require.NoError(t, err)
		_, err = store.Put(context.Background(), id, data)
		require.NoError(t, err)
	}
	for id, body := range raw {
		_, err := store.Put(context.Background(), id, []byte(body))
		require.NoError(t, err)
	}
	return store
}
