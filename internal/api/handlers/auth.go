package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nimbusdrive/nimbus-server/internal/config"
	"github.com/nimbusdrive/nimbus-server/internal/models"
	"github.com/nimbusdrive/nimbus-server/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuthHandler(db *gorm.DB, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, logger: logger}
}

// JWT Claims struct
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type registerInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in registerInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(2, 64)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 128)),
	)
}

// POST /auth/sign-up
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input registerInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}
	if err := input.Validate(); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: err.Error()})
		return
	}

	var existing models.User
	if err := h.db.Where("username = ?", input.Username).First(&existing).Error; err == nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Username is already taken"})
		return
	}

	err := h.db.Where("email = ?", input.Email).First(&existing).Error
	switch {
	case err == nil:
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "User already exists with this email"})
		return

	case errors.Is(err, gorm.ErrRecordNotFound):
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{Success: false, Message: "Failed to hash password"})
			return
		}
		user := models.User{
			Username:     input.Username,
			Email:        input.Email,
			Password:     string(hashed),
			StorageLimit: config.Envs.DefaultStorageLimit,
		}
		if createErr := h.db.Create(&user).Error; createErr != nil {
			utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{Success: false, Message: "Database insert failed"})
			return
		}
		h.logger.Info("user registered", zap.String("user_id", user.ID.String()))

	default:
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{Success: false, Message: "Database query failed"})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{Success: true, Message: "User registered successfully"})
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil || input.Username == "" || input.Password == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{Success: false, Message: "Invalid input"})
		return
	}

	var user models.User
	err := h.db.Where("username = ?", input.Username).First(&user).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{Success: false, Message: "Invalid credentials"})
		return
	default:
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{Success: false, Message: "Database error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{Success: false, Message: "Invalid credentials"})
		return
	}

	if err := h.issueSession(w, &user); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{Success: false, Message: "Failed to create token"})
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Login successful"})
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	isProd := config.Envs.Environment == "production"
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // maxAge < 0 deletes the cookie
		Secure:   isProd,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	utils.JSONResponse(w, http.StatusOK, utils.Payload{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, user *models.User) error {
	expiration := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Envs.JWTSecret))
	if err != nil {
		return err
	}

	isProd := config.Envs.Environment == "production"
	sameSite := http.SameSiteLaxMode
	if isProd {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(time.Until(expiration).Seconds()),
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	})
	return nil
}
