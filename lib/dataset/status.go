package dataset

import "fmt"

// Match status codes as published by the listing, plus the two sentinels
// used by provenance columns.
const (
	StatusImported         = -2
	StatusNone             = -1
	StatusNotStarted       = 0
	StatusFirstHalf        = 1
	StatusHalfTime         = 2
	StatusSecondHalf       = 3
	StatusEnded            = 4
	StatusCancelled        = 5
	StatusPostponed        = 6
	StatusAbandoned        = 7
	StatusSuspended        = 8
	StatusPending          = 9
	StatusExtraTimeStarted = 10
	StatusExtraTimeEnded   = 11
	StatusPenalties        = 12
)

var statusNames = map[int]string{
	StatusImported:         "从旧数据导入",
	StatusNone:             "无",
	StatusNotStarted:       "未开始",
	StatusFirstHalf:        "上半场",
	StatusHalfTime:         "中场",
	StatusSecondHalf:       "下半场",
	StatusEnded:            "已结束",
	StatusCancelled:        "取消",
	StatusPostponed:        "改期",
	StatusAbandoned:        "腰斩",
	StatusSuspended:        "中断",
	StatusPending:          "待定",
	StatusExtraTimeStarted: "加时赛开始",
	StatusExtraTimeEnded:   "加时赛结束",
	StatusPenalties:        "点球",
}

// Statuses lists every known code in ascending order.
func Statuses() []int {
	codes := make([]int, 0, len(statusNames))
	for code := StatusImported; code <= StatusPenalties; code++ {
		codes = append(codes, code)
	}
	return codes
}

func StatusName(code int) string {
	name, ok := statusNames[code]
	if !ok {
		return fmt.Sprintf("未知(%d)", code)
	}
	return name
}

// IsInterrupted reports whether a match stopped without a result and may
// resume later.
func IsInterrupted(code int) bool {
	switch code {
	case StatusPostponed, StatusAbandoned, StatusSuspended, StatusPending:
		return true
	}
	return false
}
