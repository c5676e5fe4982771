package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"bootcamps/models"
	"bootcamps/pkg/apperr"
	"bootcamps/pkg/session"
	"bootcamps/pkg/stats"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const noUser = "No user found with that ID"

func loadUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, apperr.FromDB(err, noUser)
	}
	return &u, nil
}

// targetUser is the :id user on admin routes and the caller everywhere else.
func targetUser(c *gin.Context) (*models.User, error) {
	if c.Param("id") == "" {
		return currentUser(c), nil
	}
	id, err := paramID(c)
	if err != nil {
		return nil, err
	}
	return loadUser(c.Request.Context(), id)
}

// profileUpdates validates a partial user update. allowed lists the accepted
// keys; anything else makes the whole update invalid.
func profileUpdates(body map[string]any, allowed ...string) (map[string]any, error) {
	ok := map[string]bool{}
	for _, k := range allowed {
		ok[k] = true
	}
	out := map[string]any{}
	for k, v := range body {
		if !ok[k] {
			return nil, apperr.Validation("Invalid updates!")
		}
		s, isStr := v.(string)
		if !isStr {
			return nil, apperr.Validation(fmt.Sprintf("%s must be a string", k))
		}
		switch k {
		case "name":
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, apperr.Validation("Please provide your name!")
			}
			out["name"] = s
		case "email":
			s = session.NormalizeEmail(s)
			if !validateVar(s, "required,email") {
				return nil, apperr.Validation("Please provide a valid email")
			}
			out["email"] = s
		case "role":
			if !models.Role(s).Valid() {
				return nil, apperr.Validation("Role is either: user, publisher or admin")
			}
			out["role"] = models.Role(s)
		case "password":
			if err := session.CheckPasswordPolicy(s); err != nil {
				return nil, err
			}
			out["password"] = s
		}
	}
	return out, nil
}

func meHandler(c *gin.Context) {
	respondData(c, http.StatusOK, currentUser(c))
}

func updateMeHandler(c *gin.Context) {
	var body map[string]any
	if err := bindJSON(c, &body); err != nil {
		respondError(c, err)
		return
	}
	updates, err := profileUpdates(body, "name", "email")
	if err != nil {
		respondError(c, err)
		return
	}
	u := currentUser(c)
	if err := saveUserUpdates(c.Request.Context(), u, updates); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, u)
}

// saveUserUpdates applies profile fields with gorm and a new password through
// the session layer, which also drops the user's tokens.
func saveUserUpdates(ctx context.Context, u *models.User, updates map[string]any) error {
	if pw, ok := updates["password"].(string); ok {
		delete(updates, "password")
		if err := sessions.SetPassword(ctx, u.ID, pw); err != nil {
			return err
		}
	}
	if len(updates) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return apperr.Conflict("Email is already registered")
		}
		return apperr.FromDB(err, noUser)
	}
	return nil
}

func deleteMeHandler(c *gin.Context) {
	u := currentUser(c)
	if err := deleteUserCascade(c.Request.Context(), u); err != nil {
		respondError(c, err)
		return
	}
	clearAuthCookie(c)
	notify(c.Request.Context(), u, "Sorry to see you go!",
		fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", u.Name))
	respondNoContent(c)
}

// deleteUserCascade removes a user with their bootcamps (and everything under
// them), their courses and reviews on other bootcamps, and their tokens.
// Averages of the other bootcamps are recomputed. Stored images go last.
func deleteUserCascade(ctx context.Context, u *models.User) error {
	var camps []models.Bootcamp
	err := inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", u.ID).Find(&camps).Error; err != nil {
			return err
		}
		own := make(map[uint]bool, len(camps))
		ids := make([]uint, 0, len(camps))
		for _, b := range camps {
			own[b.ID] = true
			ids = append(ids, b.ID)
		}
		var courseCamps, reviewCamps []uint
		if err := tx.Model(&models.Course{}).Where("user_id = ?", u.ID).Distinct().Pluck("bootcamp_id", &courseCamps).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Review{}).Where("user_id = ?", u.ID).Distinct().Pluck("bootcamp_id", &reviewCamps).Error; err != nil {
			return err
		}
		if err := deleteBootcamps(tx, ids...); err != nil {
			return err
		}
		for _, m := range []any{&models.Course{}, &models.Review{}, &models.SessionToken{}} {
			if err := tx.Where("user_id = ?", u.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.User{}, u.ID).Error; err != nil {
			return err
		}
		for _, id := range courseCamps {
			if !own[id] {
				if err := stats.RecomputeAverageCost(tx, id); err != nil {
					return err
				}
			}
		}
		for _, id := range reviewCamps {
			if !own[id] {
				if err := stats.RecomputeAverageRating(tx, id); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB(err, noUser)
	}
	for _, b := range camps {
		removeImage(b.ImageCoverPath)
	}
	removeImage(u.AvatarPath)
	return nil
}

func getAvatarHandler(c *gin.Context) {
	msg := "No avatar associated with the user"
	if c.Param("id") != "" {
		msg = "No user or avatar found with that ID"
	}
	u, err := targetUser(c)
	if err != nil {
		respondError(c, apperr.NotFound(msg))
		return
	}
	serveImage(c, u.AvatarPath, msg)
}

func uploadAvatarHandler(c *gin.Context) {
	u, err := targetUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	rel, err := avatarUpload.save(c)
	if err != nil {
		respondError(c, err)
		return
	}
	old := u.AvatarPath
	if err := db.WithContext(c.Request.Context()).Model(u).Update("avatar_path", rel).Error; err != nil {
		removeImage(rel)
		respondError(c, apperr.FromDB(err, noUser))
		return
	}
	removeImage(old)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func deleteAvatarHandler(c *gin.Context) {
	u, err := targetUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	old := u.AvatarPath
	if err := db.WithContext(c.Request.Context()).Model(u).Update("avatar_path", "").Error; err != nil {
		respondError(c, apperr.FromDB(err, noUser))
		return
	}
	removeImage(old)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func listUsersHandler(c *gin.Context) {
	listWithPlan[models.User](c, db.WithContext(c.Request.Context()).Model(&models.User{}), userFields)
}

func createUserHandler(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,max=255"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,safepassword"`
		Role     string `json:"role" binding:"omitempty,oneof=user publisher admin"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	u := &models.User{Name: req.Name, Email: req.Email, Role: models.Role(req.Role)}
	if err := sessions.CreateUser(c.Request.Context(), u, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, u)
}

func getUserHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var u models.User
	err = db.WithContext(c.Request.Context()).
		Preload("Bootcamps").Preload("Courses").Preload("Reviews").
		First(&u, id).Error
	if err != nil {
		respondError(c, apperr.FromDB(err, noUser))
		return
	}
	respondData(c, http.StatusOK, u)
}

func updateUserHandler(c *gin.Context) {
	var body map[string]any
	if err := bindJSON(c, &body); err != nil {
		respondError(c, err)
		return
	}
	updates, err := profileUpdates(body, "name", "email", "role", "password")
	if err != nil {
		respondError(c, err)
		return
	}
	u, err := targetUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := saveUserUpdates(c.Request.Context(), u, updates); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, u)
}

func deleteUserHandler(c *gin.Context) {
	u, err := targetUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := deleteUserCascade(c.Request.Context(), u); err != nil {
		respondError(c, err)
		return
	}
	respondNoContent(c)
}
