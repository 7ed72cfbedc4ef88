package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func isEmailValid(email string) bool {
	return emailPattern.MatchString(email)
}

func findUserByEmail(email string) (*users.User, error) {
	var user users.User
	err := database.DB.Where("email = ?", subscribers.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// POST /register
func Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := subscribers.NormalizeEmail(input.Email)
	if !isEmailValid(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}
	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashed := string(hashedPassword)

	user := users.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Password:     &hashed,
		AuthProvider: users.ProviderLocal,
		Role:         users.RoleUser,
		IsVerified:   false,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		zap.L().Warn("Register insert failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "Email may already exist"})
		return
	}

	if _, err := subscribers.Ensure(database.DB, email, user.ID); err != nil {
		zap.L().Error("Failed to create subscriber row", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	code, err := issueCode(database.DB, user.ID, users.PurposeSignup, signupCodeTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create verification code"})
		return
	}

	if err := SendSignupCode(user.Email, code); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully. Please enter the code we sent to your email."})
}

// POST /verify-signup-code
func VerifySignupCode(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and code are required"})
		return
	}

	user, err := findUserByEmail(body.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
		return
	}
	if user.IsVerified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already verified"})
		return
	}

	if err := consumeCode(database.DB, user.ID, users.PurposeSignup, strings.TrimSpace(body.Code)); err != nil {
		c.JSON(codeErrorStatus(err), gin.H{"error": codeErrorMessage(err)})
		return
	}

	if err := database.DB.Model(user).Update("is_verified", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		return
	}

	tokenString, err := IssueToken(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified", "token": tokenString})
}

// POST /login
func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := findUserByEmail(input.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email before logging in", "reason": "EMAIL_NOT_VERIFIED"})
		return
	}

	tokenString, err := IssueToken(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tokenString})
}

// POST /resend-verification
func ResendVerification(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid email"})
		return
	}

	user, err := findUserByEmail(body.Email)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if user.IsVerified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already verified"})
		return
	}

	code, err := issueCode(database.DB, user.ID, users.PurposeSignup, signupCodeTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store verification code"})
		return
	}
	if err := SendSignupCode(user.Email, code); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification email resent"})
}

// POST /request-password-reset
func RequestPasswordReset(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	const genericReply = "If your email exists, you'll receive a reset code."

	user, err := findUserByEmail(body.Email)
	if err != nil {
		// Don't expose whether the email exists
		c.JSON(http.StatusOK, gin.H{"message": genericReply})
		return
	}

	code, err := issueCode(database.DB, user.ID, users.PurposePasswordReset, resetCodeTTL)
	if err != nil {
		zap.L().Error("Failed to store reset code", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": genericReply})
		return
	}
	_ = SendPasswordResetCode(user.Email, code)

	c.JSON(http.StatusOK, gin.H{"message": genericReply})
}

// POST /reset-password
func ResetPassword(c *gin.Context) {
	var body struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !isPasswordStrong(body.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters with letters and numbers"})
		return
	}

	user, err := findUserByEmail(body.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"})
		return
	}

	if err := consumeCode(database.DB, user.ID, users.PurposePasswordReset, strings.TrimSpace(body.Code)); err != nil {
		c.JSON(codeErrorStatus(err), gin.H{"error": codeErrorMessage(err)})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	// A reset code proves mailbox ownership, so the account counts as verified.
	if err := database.DB.Model(user).Updates(map[string]any{
		"password":    string(hashed),
		"is_verified": true,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

// POST /change-password
func ChangePassword(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if !isPasswordStrong(body.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 8 characters with letters and numbers"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "This account does not have a password. Sign in with Google or reset your password first.",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(body.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Old password is incorrect"})
		return
	}

	hashedNew, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	if err := database.DB.Model(&user).Update("password", string(hashedNew)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
