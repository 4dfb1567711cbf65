package dataset

import (
	"precisebet/lib/table"
)

// Field keys.
const (
	KeyPeriod       = "period"
	KeySequence     = "sequence"
	KeyLeague       = "league_id"
	KeyRound        = "round"
	KeyKickoff      = "kickoff"
	KeyStatus       = "status"
	KeyHostID       = "host_id"
	KeyHostName     = "host_name"
	KeyGuestID      = "guest_id"
	KeyGuestName    = "guest_name"
	KeyHalfScore    = "half_score"
	KeyHandicapName = "handicap_name"

	KeyHostScore  = "host_score"
	KeyGuestScore = "guest_score"

	KeyHostValue  = "host_value"
	KeyGuestValue = "guest_value"

	KeyLiveWater1    = "live_water1"
	KeyLiveHandicap  = "live_handicap"
	KeyLiveWater2    = "live_water2"
	KeyEarlyWater1   = "early_water1"
	KeyEarlyHandicap = "early_handicap"
	KeyEarlyWater2   = "early_water2"

	KeyWin  = "win"
	KeyDraw = "draw"
	KeyLose = "lose"

	KeyHostRecent      = "host_recent"
	KeyGuestRecent     = "guest_recent"
	KeyHostHomeRecent  = "host_home_recent"
	KeyGuestAwayRecent = "guest_away_recent"

	KeyLeagueName = "league_name"
	KeyScore      = "score"
	KeyResult     = "result"

	KeyName  = "name"
	KeyColor = "color"
	KeyType  = "type"
	KeyValue = "value"
)

// HandicapKeys is the order in which the handicap scraper returns figures.
var HandicapKeys = []string{
	KeyLiveWater1, KeyLiveHandicap, KeyLiveWater2,
	KeyEarlyWater1, KeyEarlyHandicap, KeyEarlyWater2,
}

// RecentKeys is the order in which the recent results scraper returns lists.
var RecentKeys = []string{
	KeyHostRecent, KeyGuestRecent, KeyHostHomeRecent, KeyGuestAwayRecent,
}

const (
	LeagueTypeLeague  = "league"
	LeagueTypeCup     = "cup"
	LeagueTypeUnknown = "unknown"
)

var matchID = table.Field{Key: "match_id", Name: "代号", Kind: table.KindString}

var (
	MatchSchema = table.NewSchema(
		"data",
		matchID,
		table.Field{Key: KeyPeriod, Name: "期号", Kind: table.KindInt},
		table.Field{Key: KeySequence, Name: "场次", Kind: table.KindInt},
		table.Field{Key: KeyLeague, Name: "赛事", Kind: table.KindString},
		table.Field{Key: KeyRound, Name: "轮次", Kind: table.KindString},
		table.Field{Key: KeyKickoff, Name: "比赛时间", Kind: table.KindInt},
		table.Field{Key: KeyStatus, Name: "状态", Kind: table.KindInt, Default: int64(StatusNone)},
		table.Field{Key: KeyHostID, Name: "主队", Kind: table.KindInt},
		table.Field{Key: KeyHostName, Name: "主队名称", Kind: table.KindString},
		table.Field{Key: KeyGuestID, Name: "客队", Kind: table.KindInt},
		table.Field{Key: KeyGuestName, Name: "客队名称", Kind: table.KindString},
		table.Field{Key: KeyHalfScore, Name: "半场比分", Kind: table.KindString},
		table.Field{Key: KeyHandicapName, Name: "盘口", Kind: table.KindString},
	)

	ScoreSchema = table.NewSchema(
		"score",
		matchID,
		table.Field{Key: KeyHostScore, Name: "主队", Kind: table.KindInt},
		table.Field{Key: KeyGuestScore, Name: "客队", Kind: table.KindInt},
		table.UpdatedTime,
		table.UpdatedMatchStatus,
	)

	ValueSchema = table.NewSchema(
		"value",
		matchID,
		table.Field{Key: KeyHostValue, Name: "主队价值", Kind: table.KindNullableInt},
		table.Field{Key: KeyGuestValue, Name: "客队价值", Kind: table.KindNullableInt},
		table.UpdatedTime,
		table.UpdatedMatchStatus,
	)

	HandicapSchema = table.NewSchema(
		"handicap",
		matchID,
		table.Field{Key: KeyLiveWater1, Name: "平即水1", Kind: table.KindNullableFloat},
		table.Field{Key: KeyLiveHandicap, Name: "平即盘", Kind: table.KindNullableFloat},
		table.Field{Key: KeyLiveWater2, Name: "平即水2", Kind: table.KindNullableFloat},
		table.Field{Key: KeyEarlyWater1, Name: "平初水1", Kind: table.KindNullableFloat},
		table.Field{Key: KeyEarlyHandicap, Name: "平初盘", Kind: table.KindNullableFloat},
		table.Field{Key: KeyEarlyWater2, Name: "平初水2", Kind: table.KindNullableFloat},
		table.UpdatedTime,
		table.UpdatedMatchStatus,
	)

	OddSchema = table.NewSchema(
		"odd",
		matchID,
		table.Field{Key: KeyWin, Name: "胜", Kind: table.KindFloat},
		table.Field{Key: KeyDraw, Name: "平", Kind: table.KindFloat},
		table.Field{Key: KeyLose, Name: "负", Kind: table.KindFloat},
		table.UpdatedTime,
		table.UpdatedMatchStatus,
	)

	RecentSchema = table.NewSchema(
		"recent",
		matchID,
		table.Field{Key: KeyHostRecent, Name: "主队近期", Kind: table.KindString},
		table.Field{Key: KeyGuestRecent, Name: "客队近期", Kind: table.KindString},
		table.Field{Key: KeyHostHomeRecent, Name: "主队主场近期", Kind: table.KindString},
		table.Field{Key: KeyGuestAwayRecent, Name: "客队客场近期", Kind: table.KindString},
		table.UpdatedTime,
		table.UpdatedMatchStatus,
	)

	LeagueSchema = table.NewSchema(
		"league",
		table.Field{Key: "league_id", Name: "代号", Kind: table.KindString},
		table.Field{Key: KeyName, Name: "名称", Kind: table.KindString, Order: table.OrderName},
		table.Field{Key: KeyColor, Name: "颜色", Kind: table.KindString},
		table.Field{
			Key:        KeyType,
			Name:       "类型",
			Kind:       table.KindCategory,
			Categories: []string{LeagueTypeLeague, LeagueTypeCup, LeagueTypeUnknown},
			Default:    LeagueTypeUnknown,
		},
	)

	TeamSchema = table.NewSchema(
		"team",
		table.Field{Key: "team_id", Name: "代号", Kind: table.KindInt},
		table.Field{Key: KeyName, Name: "名称", Kind: table.KindString, Order: table.OrderName},
		table.Field{Key: KeyValue, Name: "价值", Kind: table.KindNullableInt},
		table.UpdatedTime,
	)

	// OkoooSchema holds the danchang matches of okooo.com, keyed by their
	// okooo match id. Scores and results are kept as shown on the page.
	OkoooSchema = table.NewSchema(
		"okooo-data",
		matchID,
		table.Field{Key: KeyPeriod, Name: "期号", Kind: table.KindInt},
		table.Field{Key: KeySequence, Name: "场次", Kind: table.KindInt},
		table.Field{Key: KeyLeagueName, Name: "赛事", Kind: table.KindString},
		table.Field{Key: KeyKickoff, Name: "比赛时间", Kind: table.KindInt},
		table.Field{Key: KeyHostName, Name: "主队名称", Kind: table.KindString},
		table.Field{Key: KeyScore, Name: "比分", Kind: table.KindString},
		table.Field{Key: KeyGuestName, Name: "客队名称", Kind: table.KindString},
		table.Field{Key: KeyResult, Name: "结果", Kind: table.KindString},
		table.Field{Key: KeyWin, Name: "胜", Kind: table.KindFloat},
		table.Field{Key: KeyDraw, Name: "平", Kind: table.KindFloat},
		table.Field{Key: KeyLose, Name: "负", Kind: table.KindFloat},
		table.UpdatedTime,
	)
)
