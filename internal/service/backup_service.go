package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"mmanyinorie/internal/database"
	"mmanyinorie/internal/models"
	"mmanyinorie/internal/repository"
)

const backupVersion = "1"

// CommunityBackup is the portable JSON form of one community
type CommunityBackup struct {
	Version       string                      `json:"version"`
	ExportedAt    time.Time                   `json:"exported_at"`
	DatabaseType  string                      `json:"database_type"`
	Community     models.Community            `json:"community"`
	Families      []models.Family             `json:"families"`
	Contributions []models.CustomContribution `json:"contributions"`
	Members       []models.Member             `json:"members"`
}

// BackupService exports and imports communities
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a community with its families, templates, members and
// payments to w as indented JSON.
func (s *BackupService) Export(ctx context.Context, communityID string, w io.Writer) (*CommunityBackup, error) {
	community, err := repository.NewCommunityRepository(s.db).GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community == nil {
		return nil, ErrNotFound
	}

	backup := &CommunityBackup{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Community:    *community,
	}
	if backup.Families, err = repository.NewFamilyRepository(s.db).List(ctx, communityID); err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}
	if backup.Contributions, err = repository.NewContributionRepository(s.db).List(ctx, communityID); err != nil {
		return nil, fmt.Errorf("failed to export contributions: %w", err)
	}
	if backup.Members, err = repository.NewMemberRepository(s.db).List(ctx, communityID); err != nil {
		return nil, fmt.Errorf("failed to export members: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	slog.Info("Community exported",
		"community_id", communityID,
		"families", len(backup.Families),
		"contributions", len(backup.Contributions),
		"members", len(backup.Members))
	return backup, nil
}

// Import reads a backup from r and recreates it as a new community owned by
// ownerID. Every record gets a fresh id; references between records are
// remapped. Derived member fields are restored as exported.
func (s *BackupService) Import(ctx context.Context, r io.Reader, ownerID string) (*models.Community, error) {
	var backup CommunityBackup
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	var community *models.Community
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		communities := repository.NewCommunityRepository(tx)
		families := repository.NewFamilyRepository(tx)
		contributions := repository.NewContributionRepository(tx)
		members := repository.NewMemberRepository(tx)

		var err error
		community, err = communities.Create(ctx, backup.Community.Name, ownerID, backup.Community.Settings)
		if err != nil {
			return err
		}
		if err := communities.AddUser(ctx, models.CommunityUser{CommunityID: community.ID, UserID: ownerID, Role: models.RoleAdmin}); err != nil {
			return err
		}

		familyIDs := make(map[string]string, len(backup.Families))
		for _, f := range backup.Families {
			created, err := families.Create(ctx, community.ID, f.Name)
			if err != nil {
				return fmt.Errorf("family %q: %w", f.Name, err)
			}
			familyIDs[f.ID] = created.ID
		}

		contributionIDs := make(map[string]string, len(backup.Contributions))
		for _, c := range backup.Contributions {
			oldID := c.ID
			c.ID = ""
			c.CommunityID = community.ID
			if err := contributions.Create(ctx, &c); err != nil {
				return fmt.Errorf("contribution %q: %w", c.Name, err)
			}
			contributionIDs[oldID] = c.ID
		}

		for _, m := range backup.Members {
			payments := m.Payments
			m.ID = ""
			m.CommunityID = community.ID
			m.FamilyID = familyIDs[m.FamilyID]
			if err := members.Create(ctx, &m); err != nil {
				return fmt.Errorf("member %q: %w", m.FullName, err)
			}
			for _, p := range payments {
				p.ID = ""
				p.MemberID = m.ID
				if id, ok := contributionIDs[p.ContributionID]; ok {
					p.ContributionID = id
				}
				if err := members.CreatePayment(ctx, &p); err != nil {
					return fmt.Errorf("payment of %q: %w", m.FullName, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import backup: %w", err)
	}

	slog.Info("Community imported",
		"community_id", community.ID,
		"families", len(backup.Families),
		"contributions", len(backup.Contributions),
		"members", len(backup.Members))
	return community, nil
}
