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

const noCourse = "No course found with that ID"

type courseInput struct {
	Title                *string  `json:"title" binding:"omitempty,min=1,max=255"`
	Description          *string  `json:"description" binding:"omitempty,min=1"`
	Weeks                *int     `json:"weeks" binding:"omitempty,min=1"`
	Tuition              *float64 `json:"tuition" binding:"omitempty,min=0"`
	MinimumSkill         *string  `json:"minimumSkill" binding:"omitempty,oneof=beginner intermediate advanced"`
	ScholarshipAvailable *bool    `json:"scholarshipAvailable"`
}

func (in courseInput) apply(cs *models.Course) {
	if in.Title != nil {
		cs.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		cs.Description = *in.Description
	}
	if in.Weeks != nil {
		cs.Weeks = *in.Weeks
	}
	if in.Tuition != nil {
		cs.Tuition = *in.Tuition
	}
	if in.MinimumSkill != nil {
		cs.MinimumSkill = *in.MinimumSkill
	}
	if in.ScholarshipAvailable != nil {
		cs.ScholarshipAvailable = *in.ScholarshipAvailable
	}
}

func (in courseInput) missing() []string {
	var out []string
	if in.Title == nil {
		out = append(out, "title")
	}
	if in.Description == nil {
		out = append(out, "description")
	}
	if in.Weeks == nil {
		out = append(out, "weeks")
	}
	if in.Tuition == nil {
		out = append(out, "tuition")
	}
	if in.MinimumSkill == nil {
		out = append(out, "minimumSkill")
	}
	return out
}

func loadCourse(ctx context.Context, id uint) (*models.Course, error) {
	var cs models.Course
	if err := db.WithContext(ctx).First(&cs, id).Error; err != nil {
		return nil, apperr.FromDB(err, noCourse)
	}
	return &cs, nil
}

// listCoursesHandler serves /courses and /bootcamps/:id/courses.
func listCoursesHandler(c *gin.Context) {
	base := db.WithContext(c.Request.Context()).Model(&models.Course{})
	if c.Param("id") != "" {
		id, err := paramID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		base = base.Where("bootcamp_id = ?", id)
	}
	listWithPlan[models.Course](c, base, courseFields)
}

func getCourseHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	cs, err := loadCourse(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, cs)
}

func createCourseHandler(c *gin.Context) {
	bootcampID, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var in courseInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}
	if m := in.missing(); len(m) > 0 {
		respondError(c, apperr.Validation("Invalid input data. Missing: "+strings.Join(m, ", ")))
		return
	}
	ctx := c.Request.Context()
	b, err := loadBootcamp(ctx, bootcampID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, b.UserID, "add a course to this bootcamp"); err != nil {
		respondError(c, err)
		return
	}
	cs := models.Course{BootcampID: b.ID, UserID: currentUser(c).ID}
	in.apply(&cs)
	err = inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&cs).Error; err != nil {
			return err
		}
		return stats.RecomputeAverageCost(tx, cs.BootcampID)
	})
	if err != nil {
		respondError(c, apperr.FromDB(err, noCourse))
		return
	}
	respondData(c, http.StatusCreated, cs)
}

func updateCourseHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var in courseInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	cs, err := loadCourse(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, cs.UserID, "update this course"); err != nil {
		respondError(c, err)
		return
	}
	in.apply(cs)
	err = inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Save(cs).Error; err != nil {
			return err
		}
		return stats.RecomputeAverageCost(tx, cs.BootcampID)
	})
	if err != nil {
		respondError(c, apperr.FromDB(err, noCourse))
		return
	}
	respondData(c, http.StatusOK, cs)
}

func deleteCourseHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	cs, err := loadCourse(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, cs.UserID, "delete this course"); err != nil {
		respondError(c, err)
		return
	}
	err = inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Course{}, cs.ID).Error; err != nil {
			return err
		}
		return stats.RecomputeAverageCost(tx, cs.BootcampID)
	})
	if err != nil {
		respondError(c, apperr.FromDB(err, noCourse))
		return
	}
	respondNoContent(c)
}
