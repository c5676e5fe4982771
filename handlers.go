package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bootcamps/models"
	"bootcamps/pkg/apperr"
	"bootcamps/pkg/query"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Public field tables used to validate query plans.
var (
	bootcampFields = query.MustFieldsOf(&models.Bootcamp{})
	courseFields   = query.MustFieldsOf(&models.Course{})
	reviewFields   = query.MustFieldsOf(&models.Review{})
	userFields     = query.MustFieldsOf(&models.User{})
)

const maxJSONBody = 10 << 10

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(logger), gin.CustomRecovery(recoverPanic), corsPolicy(cfg.CORSOrigins))
	setupRoutes(r)
	r.NoRoute(func(c *gin.Context) {
		respondError(c, apperr.NotFound(fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path)))
	})
	return r
}

func setupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.Use(rateLimit(cfg.RateLimit, cfg.RateWindow), limitJSONBody(maxJSONBody))

	publishers := restrictTo(models.RolePublisher, models.RoleAdmin)
	reviewers := restrictTo(models.RoleUser, models.RoleAdmin)

	b := api.Group("/bootcamps")
	b.GET("", listBootcampsHandler)
	b.POST("", protect(), publishers, createBootcampHandler)
	b.GET("/radius/:zipcode/:distance/:unit", bootcampsWithinHandler)
	b.GET("/:id", getBootcampHandler)
	b.PATCH("/:id", protect(), publishers, updateBootcampHandler)
	b.DELETE("/:id", protect(), publishers, deleteBootcampHandler)
	b.GET("/:id/coverimage", getCoverImageHandler)
	b.POST("/:id/coverimage", protect(), publishers, uploadCoverImageHandler)
	b.DELETE("/:id/coverimage", protect(), publishers, deleteCoverImageHandler)
	b.GET("/:id/courses", listCoursesHandler)
	b.POST("/:id/courses", protect(), publishers, createCourseHandler)
	b.GET("/:id/reviews", listReviewsHandler)
	b.POST("/:id/reviews", protect(), reviewers, createReviewHandler)

	cr := api.Group("/courses")
	cr.GET("", listCoursesHandler)
	cr.GET("/:id", getCourseHandler)
	cr.PATCH("/:id", protect(), publishers, updateCourseHandler)
	cr.DELETE("/:id", protect(), publishers, deleteCourseHandler)

	rv := api.Group("/reviews")
	rv.GET("", listReviewsHandler)
	rv.GET("/:id", getReviewHandler)
	rv.PATCH("/:id", protect(), reviewers, updateReviewHandler)
	rv.DELETE("/:id", protect(), reviewers, deleteReviewHandler)

	u := api.Group("/users")
	u.POST("/signup", signupHandler)
	u.POST("/login", loginHandler)
	u.POST("/forgotPassword", forgotPasswordHandler)
	u.PATCH("/resetPassword/:token", resetPasswordHandler)

	authed := u.Group("")
	authed.Use(protect())
	authed.PATCH("/updatePassword", updatePasswordHandler)
	authed.POST("/logout", logoutHandler)
	authed.POST("/logoutAll", logoutAllHandler)
	authed.GET("/me", meHandler)
	authed.PATCH("/me", updateMeHandler)
	authed.DELETE("/me", deleteMeHandler)
	authed.GET("/avatar", getAvatarHandler)
	authed.POST("/avatar", uploadAvatarHandler)
	authed.DELETE("/avatar", deleteAvatarHandler)

	admin := authed.Group("")
	admin.Use(restrictTo(models.RoleAdmin))
	admin.GET("", listUsersHandler)
	admin.POST("", createUserHandler)
	admin.GET("/:id", getUserHandler)
	admin.PATCH("/:id", updateUserHandler)
	admin.DELETE("/:id", deleteUserHandler)
	admin.GET("/:id/avatar", getAvatarHandler)
	admin.POST("/:id/avatar", uploadAvatarHandler)
	admin.DELETE("/:id/avatar", deleteAvatarHandler)
}

// respondError writes the error envelope and aborts the chain. 5xx causes are
// logged with the request id; the client only sees a generic message.
func respondError(c *gin.Context, err error) {
	code, body := apperr.Envelope(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(code, body)
}

func recoverPanic(c *gin.Context, rec any) {
	respondError(c, apperr.Internal("panic", fmt.Errorf("%v", rec)))
}

func respondData(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

func respondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// bindJSON decodes the request body into dst and turns binding failures into
// validation errors with readable messages.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation(bindMessage(err))
	}
	return nil
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "Request body too large"
		}
		return "Invalid input data"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return "Invalid input data. " + strings.Join(msgs, ". ")
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", f)
	case "email":
		return "Please provide a valid email"
	case "url":
		return "Please provide a valid URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, fe.Param())
	case "safepassword":
		return `Password must have at least 8 characters and cannot contain "password"`
	case "career":
		return fmt.Sprintf("%s must be one of: %s", f, strings.Join(models.Careers, ", "))
	}
	return fmt.Sprintf("%s is invalid", f)
}

// paramID parses the :id path parameter.
func paramID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid ID: " + c.Param("id"))
	}
	return uint(id), nil
}

// listWithPlan runs the query-string plan against base and writes the list
// envelope with the result count.
func listWithPlan[T any](c *gin.Context, base *gorm.DB, fields query.Fields) {
	plan := query.Build(c.Request.URL.Query())
	tx, err := query.Apply(base, plan, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	var items []T
	if err := tx.Find(&items).Error; err != nil {
		respondError(c, apperr.FromDB(err, "Not found"))
		return
	}
	data, err := query.Project(items, plan.Fields)
	if err != nil {
		respondError(c, apperr.Internal("project", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": len(items), "data": data})
}

// ensureOwner allows the owner of a record or any admin.
func ensureOwner(c *gin.Context, ownerID uint, action string) error {
	u := currentUser(c)
	if u.Role == models.RoleAdmin || u.ID == ownerID {
		return nil
	}
	return apperr.Forbidden("You are not authorized to " + action)
}

// isJSONRequest reports whether the body should be subject to the JSON size cap.
func isJSONRequest(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEJSON
}
