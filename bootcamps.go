package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bootcamps/models"
	"bootcamps/pkg/apperr"
	"bootcamps/pkg/geocode"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	earthRadiusMi = 3963.2
	earthRadiusKm = 6378.1
)

const noBootcamp = "No bootcamp found with that ID"

type bootcampInput struct {
	Name          *string  `json:"name" binding:"omitempty,min=10,max=40"`
	Description   *string  `json:"description" binding:"omitempty,max=500"`
	Website       *string  `json:"website" binding:"omitempty,url"`
	Address       *string  `json:"address" binding:"omitempty,min=1"`
	Careers       []string `json:"careers" binding:"omitempty,min=1,dive,career"`
	Housing       *bool    `json:"housing"`
	JobAssistance *bool    `json:"jobAssistance"`
	JobGuarantee  *bool    `json:"jobGuarantee"`
	AcceptGi      *bool    `json:"acceptGi"`
}

// apply copies the provided fields onto b and reports whether the address changed.
func (in bootcampInput) apply(b *models.Bootcamp) (addressChanged bool) {
	if in.Name != nil {
		b.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Website != nil {
		b.Website = strings.ToLower(*in.Website)
	}
	if in.Address != nil && *in.Address != b.Address {
		b.Address = *in.Address
		addressChanged = true
	}
	if in.Careers != nil {
		b.Careers = pq.StringArray(in.Careers)
	}
	if in.Housing != nil {
		b.Housing = *in.Housing
	}
	if in.JobAssistance != nil {
		b.JobAssistance = *in.JobAssistance
	}
	if in.JobGuarantee != nil {
		b.JobGuarantee = *in.JobGuarantee
	}
	if in.AcceptGi != nil {
		b.AcceptGi = *in.AcceptGi
	}
	return addressChanged
}

func (in bootcampInput) missing() []string {
	var out []string
	if in.Name == nil {
		out = append(out, "name")
	}
	if in.Description == nil {
		out = append(out, "description")
	}
	if in.Address == nil {
		out = append(out, "address")
	}
	if len(in.Careers) == 0 {
		out = append(out, "careers")
	}
	return out
}

// lookup geocodes address. A miss is the client's problem, a provider failure is not.
func lookup(ctx context.Context, address string) (*geocode.Result, error) {
	res, err := geocoder.Geocode(ctx, address)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, geocode.ErrNoMatch):
		return nil, apperr.Validation("Could not locate the address " + strconv.Quote(address))
	default:
		return nil, apperr.Upstream("Geocoding service unavailable", err)
	}
}

func locationOf(r *geocode.Result) models.Location {
	return models.Location{
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		FormattedAddress: r.FormattedAddress,
		Street:           r.Street,
		City:             r.City,
		State:            r.State,
		Zipcode:          r.Zipcode,
		Country:          r.Country,
	}
}

func loadBootcamp(ctx context.Context, id uint) (*models.Bootcamp, error) {
	var b models.Bootcamp
	if err := db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, apperr.FromDB(err, noBootcamp)
	}
	return &b, nil
}

func listBootcampsHandler(c *gin.Context) {
	listWithPlan[models.Bootcamp](c, db.WithContext(c.Request.Context()).Model(&models.Bootcamp{}), bootcampFields)
}

func getBootcampHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var b models.Bootcamp
	err = db.WithContext(c.Request.Context()).Preload("Courses").Preload("Reviews").First(&b, id).Error
	if err != nil {
		respondError(c, apperr.FromDB(err, noBootcamp))
		return
	}
	respondData(c, http.StatusOK, b)
}

// createBootcampHandler: publishers may own one bootcamp, admins any number.
func createBootcampHandler(c *gin.Context) {
	var in bootcampInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}
	if m := in.missing(); len(m) > 0 {
		respondError(c, apperr.Validation("Invalid input data. Missing: "+strings.Join(m, ", ")))
		return
	}
	ctx := c.Request.Context()
	u := currentUser(c)
	if u.Role != models.RoleAdmin {
		var n int64
		if err := db.WithContext(ctx).Model(&models.Bootcamp{}).Where("user_id = ?", u.ID).Count(&n).Error; err != nil {
			respondError(c, apperr.FromDB(err, noBootcamp))
			return
		}
		if n > 0 {
			respondError(c, apperr.Validation("You have already published a bootcamp"))
			return
		}
	}
	b := models.Bootcamp{UserID: u.ID}
	in.apply(&b)
	loc, err := lookup(ctx, b.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	b.Location = locationOf(loc)
	if err := db.WithContext(ctx).Create(&b).Error; err != nil {
		respondError(c, apperr.FromDB(err, noBootcamp))
		return
	}
	respondData(c, http.StatusCreated, b)
}

func updateBootcampHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var in bootcampInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	b, err := loadBootcamp(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, b.UserID, "update this bootcamp"); err != nil {
		respondError(c, err)
		return
	}
	if in.apply(b) {
		loc, err := lookup(ctx, b.Address)
		if err != nil {
			respondError(c, err)
			return
		}
		b.Location = locationOf(loc)
	}
	if err := db.WithContext(ctx).Save(b).Error; err != nil {
		respondError(c, apperr.FromDB(err, noBootcamp))
		return
	}
	respondData(c, http.StatusOK, b)
}

func deleteBootcampHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	b, err := loadBootcamp(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, b.UserID, "delete this bootcamp"); err != nil {
		respondError(c, err)
		return
	}
	if err := inTx(ctx, func(tx *gorm.DB) error { return deleteBootcamps(tx, b.ID) }); err != nil {
		respondError(c, apperr.FromDB(err, noBootcamp))
		return
	}
	removeImage(b.ImageCoverPath)
	respondNoContent(c)
}

// deleteBootcamps removes bootcamps with their courses and reviews.
func deleteBootcamps(tx *gorm.DB, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("bootcamp_id IN ?", ids).Delete(&models.Review{}).Error; err != nil {
		return err
	}
	if err := tx.Where("bootcamp_id IN ?", ids).Delete(&models.Course{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Bootcamp{}).Error
}

// bootcampsWithinHandler lists bootcamps within distance of a zipcode, using
// the haversine great-circle distance on the stored coordinates.
func bootcampsWithinHandler(c *gin.Context) {
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil || distance < 0 {
		respondError(c, apperr.Validation("Distance must be a non-negative number"))
		return
	}
	var earth float64
	switch c.Param("unit") {
	case "mi":
		earth = earthRadiusMi
	case "km":
		earth = earthRadiusKm
	default:
		respondError(c, apperr.Validation("Please provide unit as mi or km"))
		return
	}
	ctx := c.Request.Context()
	loc, err := lookup(ctx, c.Param("zipcode"))
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := bootcampsWithin(db.WithContext(ctx), loc.Latitude, loc.Longitude, distance/earth)
	if err != nil {
		respondError(c, apperr.FromDB(err, noBootcamp))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": len(items), "data": items})
}

// withinRadiusSQL compares the haversine central angle, in radians, to a bound.
// The asin argument is clamped to 1; rounding pushes it past 1 near antipodes.
const withinRadiusSQL = `2 * asin(least(1, sqrt(power(sin(radians(location_latitude - ?) / 2), 2) + cos(radians(?)) * cos(radians(location_latitude)) * power(sin(radians(location_longitude - ?) / 2), 2)))) <= ?`

func bootcampsWithin(tx *gorm.DB, lat, lng, radians float64) ([]models.Bootcamp, error) {
	var items []models.Bootcamp
	err := tx.Where(withinRadiusSQL, lat, lat, lng, radians).Order("id").Find(&items).Error
	return items, err
}

func getCoverImageHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	const msg = "No bootcamp or coverImage found with that ID"
	b, err := loadBootcamp(c.Request.Context(), id)
	if err != nil {
		respondError(c, apperr.NotFound(msg))
		return
	}
	serveImage(c, b.ImageCoverPath, msg)
}

func uploadCoverImageHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	b, err := loadBootcamp(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, b.UserID, "upload coverImage for this bootcamp"); err != nil {
		respondError(c, err)
		return
	}
	rel, err := coverUpload.save(c)
	if err != nil {
		respondError(c, err)
		return
	}
	old := b.ImageCoverPath
	if err := db.WithContext(ctx).Model(b).Update("image_cover_path", rel).Error; err != nil {
		removeImage(rel)
		respondError(c, apperr.FromDB(err, noBootcamp))
		return
	}
	removeImage(old)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func deleteCoverImageHandler(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	b, err := loadBootcamp(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ensureOwner(c, b.UserID, "delete coverImage for this bootcamp"); err != nil {
		respondError(c, err)
		return
	}
	old := b.ImageCoverPath
	if err := db.WithContext(ctx).Model(b).Update("image_cover_path", "").Error; err != nil {
		respondError(c, apperr.FromDB(err, noBootcamp))
		return
	}
	removeImage(old)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
