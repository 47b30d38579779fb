package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
)

// Response is the envelope of every json answer, Status tells success from fail
type Response struct {
	Status   string            `json:"status"`
	Message  string            `json:"msg,omitempty"`
	Comb     [][]uint64        `json:"comb,omitempty"`
	Key      string            `json:"key,omitempty"`
	Sections []SectionResponse `json:"sections,omitempty"`
}

type SectionResponse struct {
	Id        uint64   `json:"id"`
	Code      string   `json:"code"`
	Number    uint64   `json:"number"`
	Name      string   `json:"name"`
	Professor string   `json:"professor"`
	Credit    uint64   `json:"credit"`
	TimePlace string   `json:"time_place"`
	Rooms     []string `json:"rooms"`
}

func ok(c *gin.Context, response Response) {
	response.Status = statusSuccess
	c.JSON(http.StatusOK, response)
}

func fail(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Response{
		Status:  statusFail,
		Message: message,
	})
}
