package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// HandleCreateJob 创建或覆盖岗位要求
func (h *ResumeHandler) HandleCreateJob(ctx context.Context, c *app.RequestContext) {
	var req CreateJobRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, ErrorResponse{Error: "请求体不是合法的JSON"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(consts.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("参数校验失败: %v", err)})
		return
	}

	job := req.ToJobRequirement()
	jobID, err := h.service.SaveJob(ctx, req.JobID, job)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusCreated, JobResponse{JobID: jobID, JobRequirement: job})
}

// HandleGetJob 查询岗位要求
func (h *ResumeHandler) HandleGetJob(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	job, err := h.service.GetJob(ctx, jobID)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, JobResponse{JobID: jobID, JobRequirement: job})
}

// HandleListJobScores 按得分降序分页返回岗位下的评分，cursor 为偏移量
func (h *ResumeHandler) HandleListJobScores(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	cursor, size := parsePage(c.Query("cursor"), c.Query("size"))

	page, err := h.service.ListJobScores(ctx, jobID, cursor, size)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, page)
}

func parsePage(cursorStr, sizeStr string) (int, int) {
	cursor, size := 0, defaultPageSize
	if v, err := strconv.Atoi(cursorStr); err == nil && v > 0 {
		cursor = v
	}
	if v, err := strconv.Atoi(sizeStr); err == nil && v > 0 && v <= maxPageSize {
		size = v
	}
	return cursor, size
}
