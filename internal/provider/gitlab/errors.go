package gitlab

import (
	"errors"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	perrors "github.com/valksor/go-phaseflow/internal/provider/errors"
)

// wrapAPIError converts GitLab API errors to the shared taxonomy.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var glErr *gitlab.ErrorResponse
	if errors.As(err, &glErr) && glErr.Response != nil {
		return perrors.WrapStatus(ProviderName, glErr.Response.StatusCode, glErr.Message, err)
	}

	return perrors.WrapNetwork(ProviderName, err)
}
