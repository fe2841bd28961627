package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"expo-registration/internal/models"
	"expo-registration/internal/store"
	"expo-registration/internal/util"
)

// handleRegister accepts the multipart registration form. All failable
// external work (payment verification, photo upload) happens before the store
// write, so a failure anywhere leaves no partial state behind.
func (s *Server) handleRegister(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	rawPhone := strings.TrimSpace(c.PostForm("phone"))
	if name == "" || rawPhone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and phone are required"})
		return
	}
	phone, err := util.NormalizePhone(rawPhone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	// Duplicate check before any external call: conflicts answer with the
	// existing record instead of burning payment/storage quota.
	if existing, err := s.store.FindByPhone(c.Request.Context(), phone); err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":        "phone already registered",
			"registration": existing.Public(),
		})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Error().Err(err).Str("phone", phone).Msg("duplicate check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed, please try again"})
		return
	}

	var paymentID *string
	if s.pay.Required() {
		orderID := c.PostForm("order_id")
		payID := c.PostForm("payment_id")
		signature := c.PostForm("payment_signature")
		if err := s.pay.VerifyPayment(c.Request.Context(), orderID, payID, signature); err != nil {
			s.log.Warn().Err(err).Str("phone", phone).Msg("payment verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment verification failed"})
			return
		}
		paymentID = &payID
	}

	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo is required"})
		return
	}

	regID := util.NewRegistrationID()
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo is unreadable"})
		return
	}
	defer src.Close()

	objectName := "photos/" + regID + strings.ToLower(filepath.Ext(file.Filename))
	imageURL, err := s.uploader.Upload(c.Request.Context(), objectName, file.Header.Get("Content-Type"), src)
	if err != nil {
		s.log.Error().Err(err).Str("registration_id", regID).Msg("photo upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed, please try again"})
		return
	}

	reg := &models.Registration{
		RegistrationID: regID,
		Phone:          phone,
		Name:           name,
		Company:        strings.TrimSpace(c.PostForm("company")),
		Address:        strings.TrimSpace(c.PostForm("address")),
		City:           strings.TrimSpace(c.PostForm("city")),
		State:          strings.TrimSpace(c.PostForm("state")),
		AttendanceDays: strings.TrimSpace(c.PostForm("attendance_days")),
		PaymentID:      paymentID,
		ImageURL:       imageURL,
	}
	if err := s.store.Create(c.Request.Context(), reg); err != nil {
		var dup *store.DuplicatePhoneError
		if errors.As(err, &dup) {
			// Lost a race with a concurrent submission of the same phone.
			c.JSON(http.StatusConflict, gin.H{
				"error":        "phone already registered",
				"registration": dup.Existing.Public(),
			})
			return
		}
		s.log.Error().Err(err).Str("registration_id", regID).Msg("store create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed, please try again"})
		return
	}

	s.log.Info().Str("registration_id", reg.RegistrationID).Str("phone", phone).Msg("registration created")
	go s.notifier.RegistrationCreated(*reg)

	c.JSON(http.StatusOK, gin.H{"registration": reg.Public()})
}

// handleFindRegistration is the self-service re-lookup by phone.
func (s *Server) handleFindRegistration(c *gin.Context) {
	rawPhone := c.Query("phone")
	if rawPhone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	phone, err := util.NormalizePhone(rawPhone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	reg, err := s.store.FindByPhone(c.Request.Context(), phone)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("phone", phone).Msg("lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed, please try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": reg.Public()})
}
