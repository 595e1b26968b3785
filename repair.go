package main

// repairOrBreakItems charges repair costs against the user gold in the given order.
// An item that can't be paid for anymore gets the broken rank and is unequipped
// from every character of the user, not only from the one that reported it.
// Every report gets an outcome, items that are already broken or not owned by
// the user are reported broken and never charged.
func repairOrBreakItems(user *User, damaged []GameUserDamagedItem) []GameUserRepairedItem {
	outcomes := make([]GameUserRepairedItem, 0, len(damaged))
	for _, d := range damaged {
		broke := GameUserRepairedItem{UserItemID: d.UserItemID, RepairCost: 0, Broke: true}

		item := user.Item(d.UserItemID)
		if item == nil {
			Log("user %v doesn't own damaged item %v, report it broken", user.ID, d.UserItemID)
			outcomes = append(outcomes, broke)
			continue
		}

		if item.Broken() {
			// broken earlier in the batch or before the round, nothing left to repair
			unequipEverywhere(user, item)
			outcomes = append(outcomes, broke)
			continue
		}

		if user.Gold >= d.RepairCost {
			user.Gold -= d.RepairCost
			outcomes = append(outcomes, GameUserRepairedItem{
				UserItemID: item.ID,
				RepairCost: d.RepairCost,
				Broke:      false,
			})
			continue
		}

		item.Rank = BrokenRank
		unequipEverywhere(user, item)
		Log("user %v can't afford repair of item %v (cost %v, gold %v), item broke", user.ID, item.ID, d.RepairCost, user.Gold)
		outcomes = append(outcomes, broke)
	}
	return outcomes
}

func unequipEverywhere(user *User, item *UserItem) {
	for _, c := range user.Characters {
		kept := c.EquippedItems[:0]
		for _, ei := range c.EquippedItems {
			if ei.UserItem != nil && ei.UserItem.ID == item.ID {
				continue
			}
			kept = append(kept, ei)
		}
		// drop dangling pointers in the tail
		for i := len(kept); i < len(c.EquippedItems); i++ {
			c.EquippedItems[i] = nil
		}
		c.EquippedItems = kept
	}
}
