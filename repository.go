package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

type storage struct {
	db *sql.DB
}

// applyFunc mutates the resolved graphs in memory, resolved maps a character id to its user.
// Characters that were not found are missing from the map.
type applyFunc func(resolved map[uuid.UUID]*User) error

// Repo contains methods to interact with database
// context is added to be able to cancel database query on rest request cancelation
type Repo interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID uuid.UUID) (*User, error)
	GetCharacter(ctx context.Context, characterID uuid.UUID) (*Character, error)
	ApplyGameUpdates(ctx context.Context, roundID uuid.UUID, characterIDs []uuid.UUID, apply applyFunc) error
	PurgeRounds(ctx context.Context, olderThan time.Time) (int64, error)
}

// NewRepo is constructor for db layer accessor
func NewRepo(ctx context.Context, db *sql.DB) (Repo, error) {
	storage := storage{db: db}
	if err := migrate(ctx, storage.db); err != nil {
		return nil, fmt.Errorf("Database migration failed: %w", err)
	}
	return &storage, nil
}

// CreateUser inserts the whole user graph: items, characters and their equipment
func (st *storage) CreateUser(ctx context.Context, user *User) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO users (id, platform, platform_user_id, gold, experience_multiplier) VALUES (?,?,?,?,?)",
		user.ID, string(user.Platform), user.PlatformUserID, user.Gold, user.ExperienceMultiplier); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert user %w", err)
	}
	for _, r := range user.Restrictions {
		if _, err := tx.ExecContext(ctx, "INSERT INTO restrictions (id, restricted_user_id, type, reason, duration_ms, created_at_ms) VALUES (?,?,?,?,?,?)",
			r.ID, user.ID, string(r.Type), r.Reason, r.Duration.Milliseconds(), r.CreatedAt.UnixMilli()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert restriction %w", err)
		}
	}
	for _, item := range user.Items {
		if _, err := tx.ExecContext(ctx, "INSERT INTO user_items (id, user_id, base_item_id, item_rank) VALUES (?,?,?,?)",
			item.ID, user.ID, item.BaseItemID, item.Rank); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert user item %w", err)
		}
	}
	for _, c := range user.Characters {
		if _, err := tx.ExecContext(ctx, "INSERT INTO characters (id, user_id, name) VALUES (?,?,?)", c.ID, user.ID, c.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert character %w", err)
		}
		if err := saveCharacter(ctx, tx, c); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (st *storage) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	return loadUser(ctx, st.db, userID)
}

func (st *storage) GetCharacter(ctx context.Context, characterID uuid.UUID) (*Character, error) {
	userID, err := characterOwner(ctx, st.db, characterID)
	if err != nil {
		return nil, err
	}
	user, err := loadUser(ctx, st.db, userID)
	if err != nil {
		return nil, err
	}
	return user.Character(characterID), nil
}

// ApplyGameUpdates loads the graphs of the given characters, lets apply mutate them and
// saves everything in a single transaction. Nothing is written if any step fails.
func (st *storage) ApplyGameUpdates(ctx context.Context, roundID uuid.UUID, characterIDs []uuid.UUID, apply applyFunc) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if roundID != uuid.Nil {
		var found int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM reconciled_rounds WHERE id = ?", roundID).Scan(&found)
		if err == nil {
			tx.Rollback()
			return ErrRoundAlreadyReconciled
		}
		if !errors.Is(err, sql.ErrNoRows) {
			tx.Rollback()
			return fmt.Errorf("failed to check round %w", err)
		}
	}

	// characters of the same user share one graph so gold is charged cumulatively
	users := map[uuid.UUID]*User{}
	resolved := map[uuid.UUID]*User{}
	for _, characterID := range characterIDs {
		userID, err := characterOwner(ctx, tx, characterID)
		if errors.Is(err, ErrCharacterNotFound) {
			continue
		}
		if err != nil {
			tx.Rollback()
			return err
		}
		user, ok := users[userID]
		if !ok {
			if user, err = loadUser(ctx, tx, userID); err != nil {
				tx.Rollback()
				return err
			}
			users[userID] = user
		}
		resolved[characterID] = user
	}

	if err := apply(resolved); err != nil {
		tx.Rollback()
		return err
	}

	for _, user := range users {
		if err := saveUser(ctx, tx, user); err != nil {
			tx.Rollback()
			return err
		}
	}

	if roundID != uuid.Nil {
		if _, err := tx.ExecContext(ctx, "INSERT INTO reconciled_rounds (id, reconciled_at) VALUES (?,?)", roundID, time.Now().Unix()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to register round %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game updates %w", err)
	}
	return nil
}

func (st *storage) PurgeRounds(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := st.db.ExecContext(ctx, "DELETE FROM reconciled_rounds WHERE reconciled_at < ?", olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge rounds %w", err)
	}
	return res.RowsAffected()
}

func characterOwner(ctx context.Context, ex executor, characterID uuid.UUID) (uuid.UUID, error) {
	var userID uuid.UUID
	err := ex.QueryRowContext(ctx, "SELECT user_id FROM characters WHERE id = ?", characterID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrCharacterNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to scan character owner %w", err)
	}
	return userID, nil
}

// loadUser reads the user with its active restrictions, all its items, characters
// and every equipped item of those characters
func loadUser(ctx context.Context, ex executor, userID uuid.UUID) (*User, error) {
	user := User{}
	var platform string
	row := ex.QueryRowContext(ctx, "SELECT id, platform, platform_user_id, gold, experience_multiplier FROM users WHERE id = ?", userID)
	if err := row.Scan(&user.ID, &platform, &user.PlatformUserID, &user.Gold, &user.ExperienceMultiplier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user data %w", err)
	}
	user.Platform = Platform(platform)

	restrictions, err := activeRestrictions(ctx, ex, userID, time.Now())
	if err != nil {
		return nil, err
	}
	user.Restrictions = restrictions

	rows, err := ex.QueryContext(ctx, "SELECT id, base_item_id, item_rank FROM user_items WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select user items %w", err)
	}
	for rows.Next() {
		item := UserItem{UserID: userID}
		if err := rows.Scan(&item.ID, &item.BaseItemID, &item.Rank); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user item rows %w", err)
		}
		user.Items = append(user.Items, &item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ex.QueryContext(ctx, `SELECT id, name, experience, level, kills, deaths, assists, play_time_ns,
		rating_value, rating_deviation, rating_volatility FROM characters WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select characters %w", err)
	}
	for rows.Next() {
		c := Character{UserID: userID}
		var playTime int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Experience, &c.Level,
			&c.Statistics.Kills, &c.Statistics.Deaths, &c.Statistics.Assists, &playTime,
			&c.Rating.Value, &c.Rating.Deviation, &c.Rating.Volatility); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan character rows %w", err)
		}
		c.Statistics.PlayTime = time.Duration(playTime)
		user.Characters = append(user.Characters, &c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ex.QueryContext(ctx, `SELECT ei.character_id, ei.slot, ei.user_item_id FROM equipped_items ei
		JOIN characters c ON c.id = ei.character_id WHERE c.user_id = ? ORDER BY ei.character_id, ei.slot`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select equipped items %w", err)
	}
	for rows.Next() {
		var characterID, userItemID uuid.UUID
		var slot string
		if err := rows.Scan(&characterID, &slot, &userItemID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan equipped item rows %w", err)
		}
		c := user.Character(characterID)
		item := user.Item(userItemID)
		if c == nil || item == nil {
			rows.Close()
			return nil, fmt.Errorf("equipped item %v of character %v doesn't belong to user %v", userItemID, characterID, userID)
		}
		c.EquippedItems = append(c.EquippedItems, &EquippedItem{CharacterID: characterID, Slot: ItemSlot(slot), UserItem: item})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &user, nil
}

func activeRestrictions(ctx context.Context, ex executor, userID uuid.UUID, now time.Time) ([]Restriction, error) {
	rows, err := ex.QueryContext(ctx, `SELECT id, type, reason, duration_ms, created_at_ms FROM restrictions
		WHERE restricted_user_id = ? AND created_at_ms + duration_ms > ? ORDER BY created_at_ms`, userID, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to select restrictions %w", err)
	}
	defer rows.Close()

	restrictions := []Restriction{}
	for rows.Next() {
		r := Restriction{}
		var restrictionType string
		var durationMs, createdAtMs int64
		if err := rows.Scan(&r.ID, &restrictionType, &r.Reason, &durationMs, &createdAtMs); err != nil {
			return nil, fmt.Errorf("failed to scan restriction rows %w", err)
		}
		r.Type = RestrictionType(restrictionType)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		restrictions = append(restrictions, r)
	}
	return restrictions, rows.Err()
}

func saveUser(ctx context.Context, ex executor, user *User) error {
	if _, err := ex.ExecContext(ctx, "UPDATE users SET gold = ? WHERE id = ?", user.Gold, user.ID); err != nil {
		return fmt.Errorf("failed to update user gold %w", err)
	}
	for _, item := range user.Items {
		if _, err := ex.ExecContext(ctx, "UPDATE user_items SET item_rank = ? WHERE id = ?", item.Rank, item.ID); err != nil {
			return fmt.Errorf("failed to update user item rank %w", err)
		}
	}
	for _, c := range user.Characters {
		if err := saveCharacter(ctx, ex, c); err != nil {
			return err
		}
	}
	return nil
}

// saveCharacter writes progression and replaces the equipped item set
func saveCharacter(ctx context.Context, ex executor, c *Character) error {
	_, err := ex.ExecContext(ctx, `UPDATE characters SET experience = ?, level = ?, kills = ?, deaths = ?, assists = ?,
		play_time_ns = ?, rating_value = ?, rating_deviation = ?, rating_volatility = ? WHERE id = ?`,
		c.Experience, c.Level, c.Statistics.Kills, c.Statistics.Deaths, c.Statistics.Assists,
		int64(c.Statistics.PlayTime), c.Rating.Value, c.Rating.Deviation, c.Rating.Volatility, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update character %w", err)
	}

	if _, err := ex.ExecContext(ctx, "DELETE FROM equipped_items WHERE character_id = ?", c.ID); err != nil {
		return fmt.Errorf("failed to clear equipped items %w", err)
	}
	for _, ei := range c.EquippedItems {
		if _, ok := itemSlots[ei.Slot]; !ok {
			return fmt.Errorf("unknown item slot %q", ei.Slot)
		}
		if _, err := ex.ExecContext(ctx, "INSERT INTO equipped_items (character_id, slot, user_item_id) VALUES (?,?,?)",
			c.ID, string(ei.Slot), ei.UserItem.ID); err != nil {
			return fmt.Errorf("failed to insert equipped item %w", err)
		}
	}
	return nil
}
