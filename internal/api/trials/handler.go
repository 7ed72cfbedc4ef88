package trials

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/devices"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/trials"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type trialStatus struct {
	Mode      access.Mode `json:"mode"`
	TrialUsed bool        `json:"trial_used"`
	TrialEnd  *time.Time  `json:"trial_end"`
	DaysLeft  int         `json:"days_left"`
	Expired   bool        `json:"expired"`
}

func buildTrialStatus(now time.Time, s *subscribers.Subscriber) trialStatus {
	mode := access.DeriveMode(now, s)
	out := trialStatus{Mode: mode, Expired: mode == access.ModeTrialExpired}
	if s != nil {
		out.TrialUsed = s.TrialUsed
		out.TrialEnd = s.TrialEnd()
		out.DaysLeft = s.TrialDaysLeft(now)
	}
	return out
}

// POST /trial/start {deviceFingerprint}
// One trial per account and per device: a device bound to another account is refused.
func StartTrial(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			DeviceFingerprint string `json:"deviceFingerprint"`
		}
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		fp := strings.TrimSpace(body.DeviceFingerprint)
		if fp != "" && !devices.ValidFingerprint(fp) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deviceFingerprint"})
			return
		}

		email := c.GetString("email")
		userID := c.GetUint("user_id")
		now := time.Now()

		if fp != "" {
			if b := devices.Lookup(database.DB, fp); b != nil && b.Live(now) && !b.BelongsTo(email) {
				metrics.DeviceDecisions.WithLabelValues("rejected").Inc()
				c.JSON(http.StatusForbidden, gin.H{
					"error":  "This device is already linked to another account",
					"reason": devices.ReasonBoundToAnotherAccount,
				})
				return
			}
		}

		sub, err := subscribers.Ensure(database.DB, email, userID)
		if err != nil {
			zap.L().Error("Failed to ensure subscriber", zap.String("email", email), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
			return
		}

		if err := trials.Start(database.DB, now, sub); err != nil {
			switch {
			case errors.Is(err, trials.ErrTrialAlreadyUsed):
				c.JSON(http.StatusConflict, gin.H{"error": "Trial already used", "reason": "TRIAL_ALREADY_USED"})
			case errors.Is(err, trials.ErrAlreadySubscribed):
				c.JSON(http.StatusConflict, gin.H{"error": "Already subscribed", "reason": "ALREADY_SUBSCRIBED"})
			default:
				zap.L().Error("Failed to start trial", zap.String("email", email), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start trial"})
			}
			return
		}
		subscribers.Invalidate(c.Request.Context(), store, email)
		metrics.TrialsStarted.Inc()

		if fp != "" {
			// lost race against another account: the trial stands, the device stays theirs
			if _, err := devices.Bind(database.DB, now, devices.BindRequest{Fingerprint: fp, UserID: userID, UserEmail: email}); err != nil {
				zap.L().Warn("Trial started but device not bound", zap.String("email", email), zap.Error(err))
			}
		}

		zap.L().Info("✅ Trial started", zap.String("email", sub.Email))
		c.JSON(http.StatusOK, buildTrialStatus(now, sub))
	}
}

// POST /check-trial
func CheckTrial(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		sub, err := subscribers.LoadCached(c.Request.Context(), store, database.DB, email)
		if err != nil {
			zap.L().Warn("Subscriber lookup failed, answering free", zap.String("email", email), zap.Error(err))
			sub = nil
		}
		c.JSON(http.StatusOK, buildTrialStatus(time.Now(), sub))
	}
}
