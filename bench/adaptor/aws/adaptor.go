// Package aws calls Bedrock models through the runtime SDK, routing each model
// family to the call shape it supports.
package aws

import (
	"context"
	"sync"

	"github.com/Laisky/errors/v2"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/songquanpeng/visionbench/bench/adaptor"
	"github.com/songquanpeng/visionbench/bench/schema"
	"github.com/songquanpeng/visionbench/common/config"
)

// Client is the slice of the Bedrock runtime API the adapter uses; tests
// substitute a fake.
type Client interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Adaptor builds its Bedrock client lazily on first use so a run that never
// reaches this provider never touches AWS configuration.
type Adaptor struct {
	initOnce sync.Once
	initErr  error
	client   Client
}

func NewAdaptor() *Adaptor {
	return &Adaptor{}
}

// NewAdaptorWithClient wires a prebuilt client, bypassing credential setup.
func NewAdaptorWithClient(client Client) *Adaptor {
	return &Adaptor{client: client}
}

func (a *Adaptor) getClient(ctx context.Context) (Client, error) {
	a.initOnce.Do(func() {
		if a.client != nil {
			return
		}
		awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(config.AWSRegion),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AWSAccessKeyID, config.AWSSecretAccessKey, "")))
		if err != nil {
			a.initErr = errors.Wrap(err, "load aws config")
			return
		}
		a.client = bedrockruntime.NewFromConfig(awsConfig)
	})
	if a.initErr != nil {
		return nil, a.initErr
	}
	return a.client, nil
}

func (a *Adaptor) Invoke(ctx context.Context, req *adaptor.Request) (string, *int, error) {
	directive, ok := req.Directive.(*schema.BedrockDirective)
	if !ok {
		return "", nil, errors.Errorf("unexpected directive type %T", req.Directive)
	}
	client, err := a.getClient(ctx)
	if err != nil {
		return "", nil, err
	}

	switch ResolveCallShape(req.Model) {
	case CallShapeConverse:
		return converseCall(ctx, client, req, directive)
	default:
		return invokeCall(ctx, client, req, directive)
	}
}

// classifyError prefixes SDK failures with the exception family so a call
// record reads as "throttled: ..." rather than a bare SDK dump.
func classifyError(err error) error {
	var accessDenied *types.AccessDeniedException
	var validation *types.ValidationException
	var notFound *types.ResourceNotFoundException
	var throttled *types.ThrottlingException
	var timedOut *types.ModelTimeoutException
	var internal *types.InternalServerException
	var modelErr *types.ModelErrorException

	switch {
	case errors.As(err, &accessDenied):
		return errors.Wrap(err, "access denied")
	case errors.As(err, &validation):
		return errors.Wrap(err, "invalid request")
	case errors.As(err, &notFound):
		return errors.Wrap(err, "model not found")
	case errors.As(err, &throttled):
		return errors.Wrap(err, "throttled")
	case errors.As(err, &timedOut):
		return errors.Wrap(err, "model timed out")
	case errors.As(err, &internal):
		return errors.Wrap(err, "bedrock internal error")
	case errors.As(err, &modelErr):
		return errors.Wrap(err, "model error")
	default:
		return errors.Wrap(err, "bedrock call")
	}
}
