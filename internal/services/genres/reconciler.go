// Package genres merges parsed AniDB tags into the entity store under a
// configurable exclusion policy.
package genres

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/internal/services/parser"
	"gorm.io/gorm"
)

// Reconciler merges one parse batch of tags into storage. Blacklist maps
// an AniDB tag id to its exclusion mode: true removes the tag and every
// descendant reachable through the current batch, false only the tag.
type Reconciler struct {
	Blacklist map[int]bool
}

func NewReconciler(blacklist map[int]bool) *Reconciler {
	if blacklist == nil {
		blacklist = map[int]bool{}
	}
	return &Reconciler{Blacklist: blacklist}
}

// Reconcile applies the exclusion policy and merges the surviving tags
// for one series. Must run inside the caller's merge transaction so a
// failed merge leaves no partial tag state. Missing parents are logged
// and deferred, never an error.
func (r *Reconciler) Reconcile(tx *gorm.DB, series *models.Series, batch []parser.ParsedTag) error {
	remaining := r.applyExclusions(batch)

	// Process parents no later than children so fewer parent links need
	// deferral; the lookup below still tolerates missing parents.
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].ParentID < remaining[j].ParentID
	})

	for _, tag := range remaining {
		genre, err := r.findOrCreateGenre(tx, tag)
		if err != nil {
			return err
		}

		if tag.ParentID != 0 && !r.parentExcluded(tag.ParentID) {
			var parent models.Genre
			err := tx.Where("anidb_id = ?", tag.ParentID).First(&parent).Error
			switch {
			case err == nil:
				if genre.ParentAniDBID == nil || *genre.ParentAniDBID != parent.AniDBID {
					parentID := parent.AniDBID
					genre.ParentAniDBID = &parentID
					if err := tx.Save(genre).Error; err != nil {
						return fmt.Errorf("linking tag %d to parent %d: %w", tag.ID, tag.ParentID, err)
					}
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Parent tag not seen yet; a later merge that carries it
				// will backfill this link
				log.Printf("[DEBUG] tag %q (%d): parent %d not cached yet, deferring link", tag.Name, tag.ID, tag.ParentID)
			default:
				return fmt.Errorf("looking up parent tag %d: %w", tag.ParentID, err)
			}
		}

		if err := r.upsertAssociation(tx, series, genre, tag.Weight); err != nil {
			return err
		}
	}

	return nil
}

// applyExclusions reproduces the blacklist removal pass: for each
// blacklisted tag present in the batch, a recursive policy first removes
// the closure of batch-declared descendants (rescanning from the top
// whenever anything is removed), then the seed itself; a non-recursive
// policy removes only the seed.
func (r *Reconciler) applyExclusions(batch []parser.ParsedTag) []parser.ParsedTag {
	remaining := make([]parser.ParsedTag, len(batch))
	copy(remaining, batch)

	for _, seed := range batch {
		recursive, listed := r.Blacklist[seed.ID]
		if !listed {
			continue
		}
		if recursive {
			remaining = removeClosure(remaining, seed.ID)
		}
		remaining = removeByID(remaining, seed.ID)
	}

	return remaining
}

// removeClosure drops every tag whose parent chain reaches seedID
// through the batch. Worst case is quadratic; the restart-from-the-top
// scan is what makes the closure correct regardless of batch order.
func removeClosure(batch []parser.ParsedTag, seedID int) []parser.ParsedTag {
	removed := []int{seedID}
	idx := 0
	for idx < len(batch) {
		tag := batch[idx]
		if containsID(removed, tag.ParentID) {
			removed = append(removed, tag.ID)
			batch = append(batch[:idx], batch[idx+1:]...)
			idx = 0
			continue
		}
		idx++
	}
	return batch
}

func removeByID(batch []parser.ParsedTag, id int) []parser.ParsedTag {
	for idx, tag := range batch {
		if tag.ID == id {
			return append(batch[:idx], batch[idx+1:]...)
		}
	}
	return batch
}

func containsID(ids []int, id int) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// parentExcluded reports whether a parent id is blacklisted recursively;
// a parent blacklisted with a non-recursive policy still counts as a
// legal link target
func (r *Reconciler) parentExcluded(parentID int) bool {
	recursive, listed := r.Blacklist[parentID]
	return listed && recursive
}

func (r *Reconciler) findOrCreateGenre(tx *gorm.DB, tag parser.ParsedTag) (*models.Genre, error) {
	var genre models.Genre
	err := tx.Where("anidb_id = ?", tag.ID).First(&genre).Error
	switch {
	case err == nil:
		return &genre, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		genre = models.Genre{AniDBID: tag.ID, Name: tag.Name}
		if err := tx.Create(&genre).Error; err != nil {
			return nil, fmt.Errorf("creating tag %d: %w", tag.ID, err)
		}
		return &genre, nil
	default:
		return nil, fmt.Errorf("looking up tag %d: %w", tag.ID, err)
	}
}

// upsertAssociation creates the (series, genre) association or updates
// its weight in place; never duplicates
func (r *Reconciler) upsertAssociation(tx *gorm.DB, series *models.Series, genre *models.Genre, weight int) error {
	var assoc models.GenreAssociation
	err := tx.Where("series_id = ? AND genre_id = ?", series.ID, genre.ID).First(&assoc).Error
	switch {
	case err == nil:
		if weight != 0 && assoc.Weight != weight {
			assoc.Weight = weight
			if err := tx.Save(&assoc).Error; err != nil {
				return fmt.Errorf("updating tag weight for series %d tag %d: %w", series.AniDBID, genre.AniDBID, err)
			}
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		assoc = models.GenreAssociation{
			SeriesID: series.ID,
			GenreID:  genre.ID,
			Weight:   weight,
		}
		if err := tx.Create(&assoc).Error; err != nil {
			return fmt.Errorf("creating tag association for series %d tag %d: %w", series.AniDBID, genre.AniDBID, err)
		}
		return nil
	default:
		return fmt.Errorf("looking up tag association: %w", err)
	}
}
