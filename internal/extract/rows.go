package extract

// BasicRow is one line of the per-player CSV.
type BasicRow struct {
	MatchID      string
	GameCreation int64
	QueueID      int
	ChampionName string
	Role         string
	Win          bool
	Kills        int
	Deaths       int
	Assists      int
	CSTotal      int
	GoldEarned   int
	GameDuration int64
}

// BasicHeader is the CSV header row.
var BasicHeader = []string{
	"match_id", "game_creation", "queue_id", "champion_name", "role", "win",
	"kills", "deaths", "assists", "cs_total", "gold_earned", "game_duration",
}

// PlayerDraft holds the player columns known before the game starts.
type PlayerDraft struct {
	MatchID      string `parquet:"match_id"`
	GameCreation int64  `parquet:"game_creation"`
	QueueID      int32  `parquet:"queue_id"`
	GameVersion  string `parquet:"game_version"`
	TeamID       int32  `parquet:"team_id"`
	PUUID        string `parquet:"puuid"`
	ChampionID   int32  `parquet:"champion_id"`
	ChampionName string `parquet:"champion_name"`
	Role         string `parquet:"role"`
}

// PlayerOutcome holds the player columns only known once the game is over.
// Pointer fields are null when the match carries no challenge data.
type PlayerOutcome struct {
	GameDuration         int32 `parquet:"game_duration"`
	Win                  bool  `parquet:"win"`
	Kills                int32 `parquet:"kills"`
	Deaths               int32 `parquet:"deaths"`
	Assists              int32 `parquet:"assists"`
	ChampLevel           int32 `parquet:"champ_level"`
	GoldEarned           int32 `parquet:"gold_earned"`
	GoldSpent            int32 `parquet:"gold_spent"`
	TotalMinionsKilled   int32 `parquet:"total_minions_killed"`
	NeutralMinionsKilled int32 `parquet:"neutral_minions_killed"`
	TotalCS              int32 `parquet:"total_cs"`
	DamageToChampions    int32 `parquet:"damage_to_champions"`
	DamageToObjectives   int32 `parquet:"damage_to_objectives"`
	DamageToTurrets      int32 `parquet:"damage_to_turrets"`
	TurretTakedowns      int32 `parquet:"turret_takedowns"`
	InhibitorTakedowns   int32 `parquet:"inhibitor_takedowns"`
	VisionScore          int32 `parquet:"vision_score"`
	WardsPlaced          int32 `parquet:"wards_placed"`
	WardsKilled          int32 `parquet:"wards_killed"`
	ControlWardsPlaced   int32 `parquet:"control_wards_placed"`

	DamagePerMin         *float64 `parquet:"damage_per_min,optional"`
	GoldPerMin           *float64 `parquet:"gold_per_min,optional"`
	TeamDamagePercentage *float64 `parquet:"team_damage_percentage,optional"`
	KillParticipation    *float64 `parquet:"kill_participation,optional"`
	KDA                  *float64 `parquet:"kda,optional"`
	VisionScorePerMin    *float64 `parquet:"vision_score_per_min,optional"`
	LaneMinionsFirst10   *float64 `parquet:"lane_minions_first10,optional"`
	JungleCSBefore10     *float64 `parquet:"jungle_cs_before10,optional"`
}

// PlayerRow is one participant of one match.
type PlayerRow struct {
	PlayerDraft
	PlayerOutcome
}

// TeamDraft holds the side columns known before the game starts.
type TeamDraft struct {
	MatchID           string  `parquet:"match_id"`
	PlatformID        *string `parquet:"platform_id,optional"`
	QueueID           int32   `parquet:"queue_id"`
	GameVersion       string  `parquet:"game_version"`
	GameCreation      int64   `parquet:"game_creation"`
	TeamID            int32   `parquet:"team_id"`
	TeamSide          string  `parquet:"team_side"`
	TopChampionID     *int32  `parquet:"top_champion_id,optional"`
	JungleChampionID  *int32  `parquet:"jungle_champion_id,optional"`
	MiddleChampionID  *int32  `parquet:"middle_champion_id,optional"`
	BottomChampionID  *int32  `parquet:"bottom_champion_id,optional"`
	UtilityChampionID *int32  `parquet:"utility_champion_id,optional"`
}

// TeamOutcome holds per-side aggregates, objectives and first-objective
// flags. Flags are null when the payload does not report them.
type TeamOutcome struct {
	GameDuration          int32 `parquet:"game_duration"`
	TeamWin               int32 `parquet:"team_win"`
	TeamKills             int32 `parquet:"team_kills"`
	TeamDeaths            int32 `parquet:"team_deaths"`
	TeamAssists           int32 `parquet:"team_assists"`
	TeamGoldEarned        int64 `parquet:"team_gold_earned"`
	TeamDamageToChampions int64 `parquet:"team_damage_to_champions"`
	TeamVisionScore       int64 `parquet:"team_vision_score"`
	TeamCSTotal           int32 `parquet:"team_cs_total"`

	TeamGoldPerMin        *float64 `parquet:"team_gold_per_min,optional"`
	TeamDamagePerMin      *float64 `parquet:"team_damage_per_min,optional"`
	TeamVisionScorePerMin *float64 `parquet:"team_vision_score_per_min,optional"`
	TeamCSPerMin          *float64 `parquet:"team_cs_per_min,optional"`

	TeamTowersDestroyed     int32  `parquet:"team_towers_destroyed"`
	TeamInhibitorsDestroyed int32  `parquet:"team_inhibitors_destroyed"`
	TeamDragons             int32  `parquet:"team_dragons"`
	TeamBarons              int32  `parquet:"team_barons"`
	TeamHeralds             int32  `parquet:"team_heralds"`
	TeamPlates              *int32 `parquet:"team_plates,optional"`

	FirstBlood     *bool `parquet:"first_blood,optional"`
	FirstTower     *bool `parquet:"first_tower,optional"`
	FirstInhibitor *bool `parquet:"first_inhibitor,optional"`
	FirstBaron     *bool `parquet:"first_baron,optional"`
	FirstDragon    *bool `parquet:"first_dragon,optional"`
	FirstHerald    *bool `parquet:"first_herald,optional"`
}

// TeamRow is one side of one match.
type TeamRow struct {
	TeamDraft
	TeamOutcome
}

// TeamLabel is the projection of the team table used as a match label.
type TeamLabel struct {
	MatchID string `parquet:"match_id"`
	TeamID  int32  `parquet:"team_id"`
	TeamWin int32  `parquet:"team_win"`
}
