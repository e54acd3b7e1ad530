package github

import (
	"errors"
	"fmt"

	"github.com/google/go-github/v67/github"

	perrors "github.com/valksor/go-phaseflow/internal/provider/errors"
)

// wrapAPIError converts GitHub API errors to the shared taxonomy
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return perrors.NewProviderError(ProviderName,
			fmt.Errorf("%w: retry after %s", perrors.ErrRateLimited, rateErr.Rate.Reset.Time))
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return perrors.NewProviderError(ProviderName, fmt.Errorf("%w: %w", perrors.ErrRateLimited, err))
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return perrors.WrapStatus(ProviderName, ghErr.Response.StatusCode, ghErr.Message, err)
	}

	return perrors.WrapNetwork(ProviderName, err)
}
