package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/mlopez/surveyforge/model"
)

func (c *Client) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	var out struct {
		Surveys []model.Survey `json:"surveys"`
	}
	err := c.do(ctx, http.MethodGet, "/surveys", nil, nil, &out)
	return out.Surveys, err
}

func (c *Client) GetSurvey(ctx context.Context, id string) (*model.Survey, error) {
	survey := model.Survey{}
	err := c.do(ctx, http.MethodGet, "/surveys/"+id, nil, nil, &survey)
	if err != nil {
		return nil, err
	}
	return &survey, nil
}

func (c *Client) CreateSurvey(ctx context.Context, survey model.Survey) (*model.Survey, error) {
	created := model.Survey{}
	err := c.do(ctx, http.MethodPost, "/surveys", nil, survey, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateSurvey(ctx context.Context, id string, survey model.Survey) (*model.Survey, error) {
	updated := model.Survey{}
	err := c.do(ctx, http.MethodPut, "/surveys/"+id, nil, survey, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/surveys/"+id, nil, nil, nil)
}

// ResponseReceipt acknowledges an accepted response batch.
type ResponseReceipt struct {
	Message    string `json:"message"`
	ResponseID string `json:"response_id"`
}

func (c *Client) SubmitResponse(ctx context.Context, surveyId string, response model.SurveyResponse) (*ResponseReceipt, error) {
	receipt := ResponseReceipt{}
	err := c.do(ctx, http.MethodPost, "/surveys/"+surveyId+"/responses", nil, response, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) GetSurveyStats(ctx context.Context, id string) (*model.SurveyStat, error) {
	stat := model.SurveyStat{}
	err := c.do(ctx, http.MethodGet, "/surveys/"+id+"/stats", nil, nil, &stat)
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (c *Client) ExportSurvey(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/surveys/"+id+"/export", nil, nil, &out)
	return out, err
}

// DownloadSurveyPDF streams the rendered questionnaire into out and returns
// the filename the server derived from the survey title.
func (c *Client) DownloadSurveyPDF(ctx context.Context, id string, out io.Writer) (filename string, err error) {
	resp, err := c.send(ctx, http.MethodGet, "/surveys/"+id+"/pdf", nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}

	_, err = io.Copy(out, resp.Body)
	return filename, err
}

// UploadedFile describes a stored upload.
type UploadedFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

func (c *Client) UploadFile(ctx context.Context, filename, contentType string, file io.Reader) (*UploadedFile, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		header.Set("Content-Type", contentType)

		part, err := form.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	uploaded := UploadedFile{}
	err = decodeBody(resp.Body, &uploaded)
	if err != nil {
		return nil, err
	}
	return &uploaded, nil
}

func (c *Client) CheckRespondent(ctx context.Context, surveyId, respondentId string) (canRespond bool, err error) {
	query := url.Values{"respondent_id": {respondentId}}
	var out struct {
		CanRespond bool `json:"can_respond"`
	}
	err = c.do(ctx, http.MethodGet, "/surveys/"+surveyId+"/respondent-check", query, nil, &out)
	return out.CanRespond, err
}
