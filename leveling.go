package main

// CharacterService grants experience to characters.
// Implementations own the experience curve, the reconciler only reads the level up flag.
type CharacterService interface {
	GiveExperience(c *Character, amount int) bool
}

const maxLevel = 30

// experienceTable is the default CharacterService backed by a cumulative
// experience per level table. Index 0 is level 1.
type experienceTable struct {
	thresholds []int
}

// NewExperienceTable builds a table where each level costs growth times the previous one
func NewExperienceTable(base int, growth float64) CharacterService {
	thresholds := make([]int, maxLevel)
	step := float64(base)
	for lvl := 1; lvl < maxLevel; lvl++ {
		thresholds[lvl] = thresholds[lvl-1] + int(step)
		step *= growth
	}
	return &experienceTable{thresholds: thresholds}
}

// GiveExperience adds experience and moves the character level up when a threshold is crossed
func (t *experienceTable) GiveExperience(c *Character, amount int) bool {
	if amount <= 0 {
		return false
	}
	c.Experience += amount
	newLevel := t.levelFor(c.Experience)
	// the level never decreases even if the stored level was set above the curve
	if newLevel <= c.Level {
		return false
	}
	c.Level = newLevel
	return true
}

func (t *experienceTable) levelFor(experience int) int {
	level := 1
	for i, threshold := range t.thresholds {
		if experience < threshold {
			break
		}
		level = i + 1
	}
	return level
}
