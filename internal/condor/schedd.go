package condor

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/PelicanPlatform/classad/classad"
	"github.com/bbockelm/cedar/commands"
	"github.com/bbockelm/cedar/message"
	"github.com/bbockelm/cedar/security"
	"github.com/bbockelm/cedar/stream"
)

// Schedd represents an HTCondor schedd daemon
type Schedd struct {
	name    string
	address string
	port    int
}

// NewSchedd creates a new Schedd instance
func NewSchedd(name string, address string, port int) *Schedd {
	return &Schedd{
		name:    name,
		address: address,
		port:    port,
	}
}

// Query queries the schedd for job advertisements
// constraint is a ClassAd constraint expression (use "true" to get all jobs)
// projection is a list of attributes to return (use nil to get all attributes)
func (s *Schedd) Query(ctx context.Context, constraint string, projection []string) ([]*classad.ClassAd, error) {
	return s.queryWithAuth(ctx, constraint, projection, false)
}

// queryWithAuth performs the actual query with optional authentication
func (s *Schedd) queryWithAuth(ctx context.Context, constraint string, projection []string, useAuth bool) ([]*classad.ClassAd, error) {
	// Establish TCP connection
	addr := fmt.Sprintf("%s:%d", s.address, s.port)
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to schedd: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close connection: %w", cerr)
		}
	}()

	// Create CEDAR stream
	cedarStream := stream.NewStream(conn)

	// Determine command
	cmd := commands.QUERY_JOB_ADS
	if useAuth {
		cmd = commands.QUERY_JOB_ADS_WITH_AUTH
	}

	// Perform security handshake
	secConfig := &security.SecurityConfig{
		Command:        cmd,
		AuthMethods:    []security.AuthMethod{security.AuthSSL, security.AuthToken},
		Authentication: security.SecurityOptional,
		CryptoMethods:  []security.CryptoMethod{security.CryptoAES},
		Encryption:     security.SecurityOptional,
		Integrity:      security.SecurityOptional,
	}

	auth := security.NewAuthenticator(secConfig, cedarStream)
	_, err = auth.ClientHandshake(ctx)
	if err != nil {
		return nil, fmt.Errorf("security handshake failed: %w", err)
	}

	// Create query request ClassAd
	requestAd := createJobQueryAd(constraint, projection)

	// Send query
	queryMsg := message.NewMessageForStream(cedarStream)
	err = queryMsg.PutClassAd(ctx, requestAd)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query ClassAd: %w", err)
	}

	err = queryMsg.FinishMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to send query: %w", err)
	}

	// Receive response ads
	var jobAds []*classad.ClassAd

	for {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return jobAds, ctx.Err()
		default:
		}

		// Create a new message for each response ClassAd
		responseMsg := message.NewMessageFromStream(cedarStream)

		// Read ClassAd
		ad, err := responseMsg.GetClassAd(ctx)
		if err != nil {
			return jobAds, fmt.Errorf("failed to read ClassAd: %w", err)
		}

		// Check if this is the final ad (Owner == 0)
		if ownerVal, ok := ad.EvaluateAttrInt("Owner"); ok && ownerVal == 0 {
			// This is the final ad - check for errors
			if errCode, ok := ad.EvaluateAttrInt("ErrorCode"); ok && errCode != 0 {
				errMsg := "unknown error"
				if errStr, ok := ad.EvaluateAttrString("ErrorString"); ok {
					errMsg = errStr
				}
				return jobAds, fmt.Errorf("schedd query error %d: %s", errCode, errMsg)
			}
			// Success - final ad received (may contain summary information)
			break
		}

		// This is a job ad - append to results
		jobAds = append(jobAds, ad)
	}

	return jobAds, nil
}

// createJobQueryAd creates a request ClassAd for querying jobs
func createJobQueryAd(constraint string, projection []string) *classad.ClassAd {
	ad := classad.New()

	// Set constraint (use "true" if empty)
	if constraint == "" {
		constraint = "true"
	}
	// Parse constraint as an expression
	constraintExpr, err := classad.ParseExpr(constraint)
	if err != nil {
		// If parsing fails, use a simple "true" expression
		constraintExpr, _ = classad.ParseExpr("true")
	}
	ad.InsertExpr("Requirements", constraintExpr)

	// Set projection (space-separated list of attributes)
	if len(projection) > 0 {
		projectionStr := strings.Join(projection, " ")
		_ = ad.Set("Projection", projectionStr)
	}

	return ad
}

// SubmitResult describes the outcome of a SubmitDict call.
type SubmitResult struct {
	ClusterID int
	NumProcs  int
}

// SubmitDict submits count identical procs built from a flat submit
// description (the same shape as HTCondor's own submit_dict: string-valued
// attribute names, some prefixed with "+" for job ClassAd attributes). It is
// the Go equivalent of `htcondor.Submit(submit_dict)` followed by
// `schedd_obj.submit(submit_obj, count=n_workers)` -- TMS never renders or
// parses HTCondor submit-file syntax, it talks QMGMT directly.
func (s *Schedd) SubmitDict(ctx context.Context, submitDict map[string]string, count int) (result SubmitResult, err error) {
	if count < 1 {
		return SubmitResult{}, fmt.Errorf("count must be >= 1, got %d", count)
	}

	qmgmt, err := NewQmgmtConnection(ctx, fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to connect to schedd: %w", err)
	}
	defer func() {
		if cerr := qmgmt.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close connection: %w", cerr)
		}
	}()

	var submissionErr error
	defer func() {
		if submissionErr != nil {
			_ = qmgmt.AbortTransaction(ctx)
		}
	}()

	owner := qmgmt.authenticatedUser
	if owner == "" {
		submissionErr = fmt.Errorf("no authenticated user")
		return SubmitResult{}, submissionErr
	}
	if err := qmgmt.SetEffectiveOwner(ctx, owner); err != nil {
		submissionErr = fmt.Errorf("failed to set effective owner: %w", err)
		return SubmitResult{}, submissionErr
	}

	clusterID, err := qmgmt.NewCluster(ctx)
	if err != nil {
		submissionErr = fmt.Errorf("failed to create cluster: %w", err)
		return SubmitResult{}, submissionErr
	}

	jobAd, err := submitDictToClassAd(submitDict)
	if err != nil {
		submissionErr = fmt.Errorf("failed to build job ad: %w", err)
		return SubmitResult{}, submissionErr
	}

	for i := 0; i < count; i++ {
		procID, err := qmgmt.NewProc(ctx, clusterID)
		if err != nil {
			submissionErr = fmt.Errorf("failed to create proc %d: %w", i, err)
			return SubmitResult{}, submissionErr
		}
		if err := qmgmt.SendJobAttributes(ctx, clusterID, procID, jobAd); err != nil {
			submissionErr = fmt.Errorf("failed to set attributes for proc %d: %w", i, err)
			return SubmitResult{}, submissionErr
		}
	}

	if err := qmgmt.CommitTransaction(ctx); err != nil {
		submissionErr = fmt.Errorf("failed to commit transaction: %w", err)
		return SubmitResult{}, submissionErr
	}

	return SubmitResult{ClusterID: clusterID, NumProcs: count}, nil
}

// submitDictToClassAd converts a flat submit description into the ClassAd
// the schedd expects. Keys prefixed with "+" name a job ClassAd attribute
// directly (condor_submit's own convention) and have the prefix stripped;
// every value is parsed as a ClassAd expression so that quoted strings,
// booleans, and bare expressions (e.g. Requirements) evaluate the way they
// would coming out of condor_submit.
//
// This does not reimplement the general HTCondor submit language -- TMS only
// ever emits the fixed attribute set built by the submission package, so
// only that set needs to round-trip correctly.
func submitDictToClassAd(submitDict map[string]string) (*classad.ClassAd, error) {
	ad := classad.New()
	for key, value := range submitDict {
		key = strings.TrimPrefix(key, "+")
		expr, err := classad.ParseExpr(value)
		if err != nil {
			// Not every value is a legal ClassAd expression on its own
			// (e.g. bare paths); fall back to a string literal.
			if serr := ad.Set(key, value); serr != nil {
				return nil, fmt.Errorf("failed to set %s: %w", key, serr)
			}
			continue
		}
		ad.InsertExpr(key, expr)
	}
	return ad, nil
}
