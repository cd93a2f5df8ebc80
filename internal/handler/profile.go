package handler

import (
	"net/http"
	"strings"

	"finance-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UpdateProfileReq struct {
	DisplayName string `json:"display_name" binding:"max=64"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateProfile changes the display name of the current user.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var req UpdateProfileReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
			return
		}

		name := strings.TrimSpace(req.DisplayName)
		if err := db.WithContext(c.Request.Context()).Model(user).Update("display_name", name).Error; err != nil {
			fail(c, err)
			return
		}
		user.DisplayName = name
		util.Success(c, util.Response{"user": userView(user)})
	}
}

// ChangePassword checks the old password and stores the new one. Existing
// tokens stay valid until they expire.
func ChangePassword(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var req ChangePasswordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid parameters")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
			util.FieldError(c, "old_password", "wrong password")
			return
		}
		if !isStrongPassword(req.NewPassword) {
			util.FieldError(c, "new_password", "must be 8-32 characters with upper case, lower case and a digit")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
		if err != nil {
			fail(c, err)
			return
		}
		if err := db.WithContext(c.Request.Context()).Model(user).Update("password_hash", string(hash)).Error; err != nil {
			fail(c, err)
			return
		}
		util.Success(c, util.Response{"message": "password changed"})
	}
}
