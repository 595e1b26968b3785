package main

// applyReward merges the round reward, statistics and rating into the character and its user.
// Gold rewards are never capped here, repairs are charged afterwards by repairOrBreakItems.
func applyReward(user *User, character *Character, update GameUserUpdate, characters CharacterService) GameUserEffectiveReward {
	levelUp := characters.GiveExperience(character, update.Reward.Experience)
	user.Gold += update.Reward.Gold

	character.Statistics = addStatistics(character.Statistics, update.Statistics)
	// rating is computed upstream for the whole round, so it replaces the stored one
	character.Rating = update.Rating

	return GameUserEffectiveReward{
		Experience: update.Reward.Experience,
		Gold:       update.Reward.Gold,
		LevelUp:    levelUp,
	}
}

func addStatistics(stored, delta CharacterStatistics) CharacterStatistics {
	return CharacterStatistics{
		Kills:    stored.Kills + delta.Kills,
		Deaths:   stored.Deaths + delta.Deaths,
		Assists:  stored.Assists + delta.Assists,
		PlayTime: stored.PlayTime + delta.PlayTime,
	}
}
