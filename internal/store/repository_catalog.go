package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetBeast(ctx context.Context, id string) (*Beast, error) {
	var b Beast
	var ownerID *string
	err := s.Pool.QueryRow(ctx, `SELECT id, name, owner_id, owner_address, hp, attack, defense, speed FROM beasts WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &ownerID, &b.OwnerAddress, &b.HP, &b.Attack, &b.Defense, &b.Speed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if ownerID != nil {
		b.OwnerID = *ownerID
	}
	return &b, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.Pool.QueryRow(ctx, `SELECT id, username, wallet_address FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.WalletAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO users (id, username, wallet_address) VALUES ($1,$2,$3)`, u.ID, u.Username, u.WalletAddress)
	return err
}

func (s *Store) CreateBeast(ctx context.Context, b *Beast) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	var ownerID *string
	if b.OwnerID != "" {
		ownerID = &b.OwnerID
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO beasts (id, name, owner_id, owner_address, hp, attack, defense, speed) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.Name, ownerID, b.OwnerAddress, b.HP, b.Attack, b.Defense, b.Speed)
	return err
}
