package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/erictragoustis/vuvoregs/models"
)

// ListVisiblePackages returns the packages offered for a race that are
// still visible at the given instant, with their options loaded.
func (s *Store) ListVisiblePackages(ctx context.Context, raceID string, now time.Time) ([]models.RacePackage, error) {
	var packages []models.RacePackage
	err := s.db.Select("*").
		From("race_package").
		Where(dbx.HashExp{"race_id": raceID}).
		AndWhere(dbx.Or(
			dbx.HashExp{"visible_until": nil},
			dbx.NewExp("visible_until > {:now}", dbx.Params{"now": now}),
		)).
		OrderBy("name ASC").
		All(&packages)
	if err != nil {
		return nil, err
	}
	for i := range packages {
		opts, err := s.ListPackageOptions(ctx, packages[i].ID)
		if err != nil {
			return nil, err
		}
		packages[i].Options = opts
	}
	return packages, nil
}

// GetPackage loads one package with its options, or nil when unknown.
func (s *Store) GetPackage(ctx context.Context, id string) (*models.RacePackage, error) {
	var pkg models.RacePackage
	err := s.db.Select("*").From("race_package").Where(dbx.HashExp{"id": id}).One(&pkg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	opts, err := s.ListPackageOptions(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	pkg.Options = opts
	return &pkg, nil
}

// ListPackageOptions returns a package's options. Unknown package ids yield
// an empty list, not an error.
func (s *Store) ListPackageOptions(ctx context.Context, packageID string) ([]models.PackageOption, error) {
	var opts []models.PackageOption
	err := s.db.Select("*").
		From("package_option").
		Where(dbx.HashExp{"package_id": packageID}).
		OrderBy("name ASC").
		All(&opts)
	return opts, err
}

// CreatePackage persists a package and its options.
func (s *Store) CreatePackage(ctx context.Context, pkg *models.RacePackage) error {
	if err := s.db.Model(pkg).Insert(); err != nil {
		return err
	}
	for i := range pkg.Options {
		pkg.Options[i].PackageID = pkg.ID
		if err := s.db.Model(&pkg.Options[i]).Insert(); err != nil {
			return err
		}
	}
	return nil
}
