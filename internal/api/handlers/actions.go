package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/service"
)

const dateLayout = "2006-01-02"

type preferencesRequest struct {
	Preferences []models.StudioPreference `json:"preferences" binding:"required"`
}

type scheduleRequest struct {
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	Location string `json:"location" binding:"required"`
}

func (r scheduleRequest) parseDate() (time.Time, error) {
	d, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return time.Time{}, badRequest(fmt.Sprintf("date %q must be YYYY-MM-DD", r.Date))
	}
	return d, nil
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type refereeRequest struct {
	RefereeID string `json:"refereeId" binding:"required"`
}

// scorecardRequest uses pointers so a missing criterion is an error rather
// than a silent zero.
type scorecardRequest struct {
	Technique   *int `json:"technique" binding:"required"`
	Musicality  *int `json:"musicality" binding:"required"`
	Creativity  *int `json:"creativity" binding:"required"`
	Execution   *int `json:"execution" binding:"required"`
	Performance *int `json:"performance" binding:"required"`
}

func (r scorecardRequest) toModel() models.Scorecard {
	return models.Scorecard{
		Technique:   *r.Technique,
		Musicality:  *r.Musicality,
		Creativity:  *r.Creativity,
		Execution:   *r.Execution,
		Performance: *r.Performance,
	}
}

type scoresRequest struct {
	Initiator  *scorecardRequest `json:"initiator" binding:"required"`
	Challenged *scorecardRequest `json:"challenged" binding:"required"`
}

func (r scoresRequest) toAction() service.SubmitScores {
	return service.SubmitScores{
		Initiator:  r.Initiator.toModel(),
		Challenged: r.Challenged.toModel(),
	}
}

type noShowRequest struct {
	AbsentID string `json:"absentId" binding:"required"`
}

type editResultRequest struct {
	WinnerID *string        `json:"winnerId"`
	Scores   *scoresRequest `json:"scores"`
}

type actionDecoder func(c *gin.Context) (service.Action, error)

// actionDecoders maps the :action path segment to its request body.
var actionDecoders = map[service.ActionKind]actionDecoder{
	service.ActionAccept: func(*gin.Context) (service.Action, error) {
		return service.Accept{}, nil
	},
	service.ActionReject: func(*gin.Context) (service.Action, error) {
		return service.Reject{}, nil
	},
	service.ActionSubmitPreferences: func(c *gin.Context) (service.Action, error) {
		var req preferencesRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		return service.SubmitPreferences{Preferences: req.Preferences}, nil
	},
	service.ActionStudioApprove: func(c *gin.Context) (service.Action, error) {
		var req scheduleRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		date, err := req.parseDate()
		if err != nil {
			return nil, err
		}
		return service.StudioApprove{Date: date, Time: req.Time, Location: req.Location}, nil
	},
	service.ActionStudioReject: func(c *gin.Context) (service.Action, error) {
		var req reasonRequest
		if err := bindOptionalBody(c, &req); err != nil {
			return nil, err
		}
		return service.StudioReject{Reason: req.Reason}, nil
	},
	service.ActionAssignReferee: func(c *gin.Context) (service.Action, error) {
		var req refereeRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		return service.AssignReferee{RefereeID: req.RefereeID}, nil
	},
	service.ActionGoLive: func(*gin.Context) (service.Action, error) {
		return service.GoLive{}, nil
	},
	service.ActionSubmitScores: func(c *gin.Context) (service.Action, error) {
		var req scoresRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		return req.toAction(), nil
	},
	service.ActionSingleNoShow: func(c *gin.Context) (service.Action, error) {
		var req noShowRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		return service.SingleNoShow{AbsentID: req.AbsentID}, nil
	},
	service.ActionBothNoShow: func(*gin.Context) (service.Action, error) {
		return service.BothNoShow{}, nil
	},
	service.ActionAdminEditResult: func(c *gin.Context) (service.Action, error) {
		var req editResultRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		action := service.AdminEditResult{WinnerID: req.WinnerID}
		if req.Scores != nil {
			if req.Scores.Initiator == nil || req.Scores.Challenged == nil {
				return nil, badRequest("scores must include both initiator and challenged")
			}
			scores := req.Scores.toAction()
			action.Scores = &scores
		}
		return action, nil
	},
	service.ActionAdminCancel: func(c *gin.Context) (service.Action, error) {
		var req reasonRequest
		if err := bindOptionalBody(c, &req); err != nil {
			return nil, err
		}
		return service.AdminCancel{Reason: req.Reason}, nil
	},
	service.ActionAdminReschedule: func(c *gin.Context) (service.Action, error) {
		var req scheduleRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		date, err := req.parseDate()
		if err != nil {
			return nil, err
		}
		return service.AdminReschedule{Date: date, Time: req.Time, Location: req.Location}, nil
	},
}

func bindBody(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

func bindOptionalBody(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return bindBody(c, dst)
}
