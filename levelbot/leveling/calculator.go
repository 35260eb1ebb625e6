package leveling

import "math"

// The leveling curve is quadratic: reaching level L costs floor(12.25 * L^2)
// total XP, so level 2 lands at 49 XP and level 10 at 1225 XP.
const curveFactor = 12.25

func XPForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	return int64(math.Floor(curveFactor * float64(level) * float64(level)))
}

func LevelFromXP(totalXP float64) int {
	if totalXP <= 0 {
		return 0
	}
	return int(math.Floor(math.Sqrt(totalXP / curveFactor)))
}

func XPForNextLevel(currentLevel int) int64 {
	return XPForLevel(currentLevel + 1)
}

// ProgressInLevel returns the XP gained past the current level's threshold
// and the span of the level, for rendering progress bars. The span is 0 only
// if the curve were flat, which it is not, but callers should still guard
// the division.
func ProgressInLevel(totalXP float64, currentLevel int) (gained float64, span int64) {
	start := XPForLevel(currentLevel)
	return totalXP - float64(start), XPForLevel(currentLevel+1) - start
}
