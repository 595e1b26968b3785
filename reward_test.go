package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyReward(t *testing.T) {
	user := newUserWithItems(1000)
	character := user.addCharacter("a", nil)
	character.Statistics = CharacterStatistics{Kills: 1, Deaths: 2, Assists: 3, PlayTime: 4 * time.Second}
	character.Rating = CharacterRating{Value: 1, Deviation: 2, Volatility: 3}

	characters := &characterServiceMock{}
	characters.On("GiveExperience", character, 10).Return(true)

	reward := applyReward(user, character, GameUserUpdate{
		CharacterID: character.ID,
		Reward:      GameUserReward{Experience: 10, Gold: 200},
		Statistics:  CharacterStatistics{Kills: 5, Deaths: 6, Assists: 7, PlayTime: 8 * time.Second},
		Rating:      CharacterRating{Value: 4, Deviation: 5, Volatility: 6},
	}, characters)

	require.Equal(t, GameUserEffectiveReward{Experience: 10, Gold: 200, LevelUp: true}, reward)
	require.Equal(t, 1200, user.Gold)
	require.Equal(t, CharacterStatistics{Kills: 6, Deaths: 8, Assists: 10, PlayTime: 12 * time.Second}, character.Statistics)
	require.Equal(t, CharacterRating{Value: 4, Deviation: 5, Volatility: 6}, character.Rating)
	characters.AssertExpectations(t)
}

func TestApplyRewardReplacesRatingEvenWhenLower(t *testing.T) {
	user := newUserWithItems(0)
	character := user.addCharacter("a", nil)
	character.Rating = CharacterRating{Value: 1500, Deviation: 200, Volatility: 0.06}

	applyReward(user, character, GameUserUpdate{Rating: CharacterRating{Value: 1400, Deviation: 180, Volatility: 0.059}}, noLeveling())
	require.Equal(t, CharacterRating{Value: 1400, Deviation: 180, Volatility: 0.059}, character.Rating)
}

func TestExperienceTable(t *testing.T) {
	table := NewExperienceTable(100, 2)

	c := &Character{Level: 1}
	require.False(t, table.GiveExperience(c, 99))
	require.Equal(t, 1, c.Level)

	require.True(t, table.GiveExperience(c, 1))
	require.Equal(t, 100, c.Experience)
	require.Equal(t, 2, c.Level)

	// 100 + 200 + 400 reaches level 4
	require.True(t, table.GiveExperience(c, 600))
	require.Equal(t, 4, c.Level)

	require.False(t, table.GiveExperience(c, 0))
	require.Equal(t, 700, c.Experience)
}

func TestExperienceTableNeverLowersLevel(t *testing.T) {
	table := NewExperienceTable(100, 2)
	c := &Character{Level: 10}
	require.False(t, table.GiveExperience(c, 150))
	require.Equal(t, 10, c.Level)
	require.Equal(t, 150, c.Experience)
}

func TestExperienceTableCapsAtMaxLevel(t *testing.T) {
	table := NewExperienceTable(1, 1)
	c := &Character{Level: 1}
	require.True(t, table.GiveExperience(c, 1000))
	require.Equal(t, maxLevel, c.Level)
}
