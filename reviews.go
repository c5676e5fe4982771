package main

import (
	"context"
	"net/http"
	"strings"

	"bootcamps/models"
	"bootcamps/pkg/apperr"
	"bootcamps/pkg/stats"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const noReview = "No review found with that ID"

type reviewInput struct {
	Title  *string `json:"title" binding:"omitempty,min=1,max=100"`
	Text   *string `json:"review" binding:"omitempty,min=1"`
	Rating *int    `json:"rating" binding:"omitempty,min=1,max=10"`
}

func (in reviewInput) apply(r *models.Review) {
	if in.Title != nil {
		r.Title = strings.TrimSpace(*in.Title)
	}
	if in.Text != nil {
		r.Text = *in.Text
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
}

func loadReview(ctx context.Context, id uint) (*models.Review, error) {
	var r models.Review
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, apperr.FromDB(err, noReview)
	}
	return &r, nil
}

// listReviewsHandler serves /reviews and /bootcamps/:id/reviews.
func listReviewsHandler(c *gin.Context) {
	base := db.WithContext(c.Request.Context()).Model(&models.Review{})
	if c.Param("id") != "" {
		id, err := paramID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		base = base.Where("bootcamp_id = ?", id)
	}
	listWithPlan[models.Review](c, base, reviewFields)
}

func getReviewHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	r, err := loadReview(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, r)
}

// createReviewHandler: one review per user and bootcamp.
func createReviewHandler(c *gin.Context) {
	bootcampID, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var in reviewInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}
	if in.Title == nil || in.Text == nil || in.Rating == nil {
		respondError(c, apperr.Validation("Please add a title, a review and a rating between 1 and 10"))
		return
	}
	ctx := c.Request.Context()
	b, err := loadBootcamp(ctx, bootcampID)
	if err != nil {
		respondError(c, err)
		return
	}
	r := models.Review{BootcampID: b.ID, UserID: currentUser(c).ID}
	in.apply(&r)
	err = inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		return stats.RecomputeAverageRating(tx, r.BootcampID)
	})
	if apperr.IsUniqueViolation(err) {
		respondError(c, apperr.Conflict("You have already reviewed this bootcamp"))
		return
	}
	if err != nil {
		respondError(c, apperr.FromDB(err, noReview))
		return
	}
	respondData(c, http.StatusCreated, r)
}

func updateReviewHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var in reviewInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	r, err := loadReview(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, r.UserID, "update this review"); err != nil {
		respondError(c, err)
		return
	}
	in.apply(r)
	err = inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Save(r).Error; err != nil {
			return err
		}
		return stats.RecomputeAverageRating(tx, r.BootcampID)
	})
	if err != nil {
		respondError(c, apperr.FromDB(err, noReview))
		return
	}
	respondData(c, http.StatusOK, r)
}

func deleteReviewHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	r, err := loadReview(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, r.UserID, "delete this review"); err != nil {
		respondError(c, err)
		return
	}
	err = inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Review{}, r.ID).Error; err != nil {
			return err
		}
		return stats.RecomputeAverageRating(tx, r.BootcampID)
	})
	if err != nil {
		respondError(c, apperr.FromDB(err, noReview))
		return
	}
	respondNoContent(c)
}
