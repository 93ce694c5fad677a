// internal/portal/api/dto.go
package api

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/common/validation"
	"agritour-certification/internal/models"
	"agritour-certification/internal/review"
)

const maxBodyBytes = 1 << 20

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("tw_phone", func(fl validator.FieldLevel) bool {
		return validation.IsTaiwanPhone(fl.Field().String())
	})
	validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("addon", func(fl validator.FieldLevel) bool {
		return models.AddOnID(fl.Field().String()).Valid()
	})
}

type sendOTPRequest struct {
	Identity string `json:"identity" validate:"required,max=254"`
}

type verifyOTPRequest struct {
	Identity string `json:"identity" validate:"required,max=254"`
	Code     string `json:"code" validate:"required,numeric,min=4,max=8"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	User      models.User `json:"user"`
}

// basicInfoRequest allows partial info; only submission needs every field.
type basicInfoRequest struct {
	FarmName    string   `json:"farmName" validate:"max=200"`
	CompanyName string   `json:"companyName" validate:"max=200"`
	OwnerName   string   `json:"ownerName" validate:"max=100"`
	Phone       string   `json:"phone" validate:"omitempty,tw_phone"`
	Email       string   `json:"email" validate:"omitempty,email,max=254"`
	Address     string   `json:"address" validate:"max=300"`
	City        string   `json:"city" validate:"max=50"`
	Category    string   `json:"category" validate:"omitempty,category"`
	Specialty   []string `json:"specialty" validate:"max=20,dive,max=100"`
	AddOns      []string `json:"addOns" validate:"max=10,dive,addon"`
	Year        int      `json:"year" validate:"omitempty,gte=2020"`
}

func (b basicInfoRequest) toModel() models.BasicInfo {
	addOns := make([]models.AddOnID, len(b.AddOns))
	for i, a := range b.AddOns {
		addOns[i] = models.AddOnID(a)
	}
	specialty := b.Specialty
	if specialty == nil {
		specialty = []string{}
	}
	return models.BasicInfo{
		FarmName:    b.FarmName,
		CompanyName: b.CompanyName,
		OwnerName:   b.OwnerName,
		Phone:       b.Phone,
		Email:       b.Email,
		Address:     b.Address,
		City:        b.City,
		Category:    models.Category(b.Category),
		Specialty:   specialty,
		AddOns:      addOns,
		Year:        b.Year,
	}
}

// scoreRequest takes the score as a number, a numeric string, an empty string
// or null. The last two clear it.
type scoreRequest struct {
	Score json.RawMessage `json:"score"`
}

func (s scoreRequest) raw() (string, error) {
	v := strings.TrimSpace(string(s.Score))
	switch {
	case v == "" || v == "null":
		return "", nil
	case strings.HasPrefix(v, `"`):
		var str string
		if err := json.Unmarshal(s.Score, &str); err != nil {
			return "", err
		}
		return str, nil
	default:
		return v, nil
	}
}

type noteRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

type checklistRequest struct {
	Checked *bool `json:"checked" validate:"required"`
}

type confirmRequest struct {
	Confirmed *bool `json:"confirmed" validate:"required"`
}

type draftRequest struct {
	Step string `json:"step" validate:"omitempty,oneof=basic-info checklist assessment confirm"`
}

type sectionsResponse struct {
	State              catalog.LoadState `json:"state"`
	Sections           []catalog.Section `json:"sections"`
	VisibleQuestionIDs []string          `json:"visibleQuestionIds"`
	Ready              bool              `json:"ready"`
}

type scoresRequest struct {
	Scores []review.ScoreInput `json:"scores" validate:"required,min=1,max=100,dive"`
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject amend"`
	Note     string `json:"note" validate:"max=2000"`
}

// decode reads a JSON body into dst and validates it. An empty body decodes to
// the zero value so optional bodies need no special casing.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !stderrors.Is(err, io.EOF) {
		return fmt.Errorf("malformed JSON body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}
