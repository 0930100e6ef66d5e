// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may not
// use this file except in compliance with the License. A copy of the License
// is located at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.

package qldbdriver

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/qldbsession"
	"github.com/aws/aws-sdk-go-v2/service/qldbsession/types"
)

// transportQLDBSession adapts *qldbsession.Client -- the real, opaque ledger
// RPC stub -- to transportClient. The ledger multiplexes all six commands
// through a single SendCommand action; this file owns that multiplexing so
// the rest of the package never sees it.
type transportQLDBSession struct {
	client *qldbsession.Client
}

func newTransportQLDBSession(client *qldbsession.Client) *transportQLDBSession {
	return &transportQLDBSession{client: client}
}

func (t *transportQLDBSession) StartSession(ctx context.Context, ledgerName string) (string, error) {
	out, err := t.client.SendCommand(ctx, &qldbsession.SendCommandInput{
		StartSession: &types.StartSessionRequest{LedgerName: &ledgerName},
	})
	if err != nil {
		return "", err
	}
	if out.StartSession == nil || out.StartSession.SessionToken == nil {
		return "", fmt.Errorf("qldbdriver: StartSession returned no session token")
	}
	return *out.StartSession.SessionToken, nil
}

func (t *transportQLDBSession) StartTransaction(ctx context.Context, sessionToken string) (string, error) {
	out, err := t.client.SendCommand(ctx, &qldbsession.SendCommandInput{
		SessionToken:     &sessionToken,
		StartTransaction: &types.StartTransactionRequest{},
	})
	if err != nil {
		return "", err
	}
	if out.StartTransaction == nil || out.StartTransaction.TransactionId == nil {
		return "", fmt.Errorf("qldbdriver: StartTransaction returned no transaction id")
	}
	return *out.StartTransaction.TransactionId, nil
}

func (t *transportQLDBSession) ExecuteStatement(ctx context.Context, sessionToken, transactionID, statement string, params [][]byte) (execResult, error) {
	holders := make([]types.ValueHolder, 0, len(params))
	for _, p := range params {
		b := p
		holders = append(holders, types.ValueHolder{IonBinary: b})
	}
	out, err := t.client.SendCommand(ctx, &qldbsession.SendCommandInput{
		SessionToken: &sessionToken,
		ExecuteStatement: &types.ExecuteStatementRequest{
			TransactionId: &transactionID,
			Statement:     &statement,
			Parameters:    holders,
		},
	})
	if err != nil {
		return execResult{}, err
	}
	if out.ExecuteStatement == nil {
		return execResult{}, fmt.Errorf("qldbdriver: ExecuteStatement returned no result")
	}
	return toExecResult(out.ExecuteStatement.FirstPage, out.ExecuteStatement.ConsumedIOs, out.ExecuteStatement.TimingInformation), nil
}

func (t *transportQLDBSession) FetchPage(ctx context.Context, sessionToken, transactionID, nextPageToken string) (execResult, error) {
	out, err := t.client.SendCommand(ctx, &qldbsession.SendCommandInput{
		SessionToken: &sessionToken,
		FetchPage: &types.FetchPageRequest{
			TransactionId: &transactionID,
			NextPageToken: &nextPageToken,
		},
	})
	if err != nil {
		return execResult{}, err
	}
	if out.FetchPage == nil {
		return execResult{}, fmt.Errorf("qldbdriver: FetchPage returned no result")
	}
	return toExecResult(out.FetchPage.Page, out.FetchPage.ConsumedIOs, out.FetchPage.TimingInformation), nil
}

func (t *transportQLDBSession) CommitTransaction(ctx context.Context, sessionToken, transactionID string, digest qldbHash) (qldbHash, error) {
	out, err := t.client.SendCommand(ctx, &qldbsession.SendCommandInput{
		SessionToken: &sessionToken,
		CommitTransaction: &types.CommitTransactionRequest{
			TransactionId: &transactionID,
			CommitDigest:  digest[:],
		},
	})
	if err != nil {
		return qldbHash{}, err
	}
	if out.CommitTransaction == nil {
		return qldbHash{}, fmt.Errorf("qldbdriver: CommitTransaction returned no result")
	}
	var server qldbHash
	copy(server[:], out.CommitTransaction.CommitDigest)
	return server, nil
}

func (t *transportQLDBSession) AbortTransaction(ctx context.Context, sessionToken string) error {
	_, err := t.client.SendCommand(ctx, &qldbsession.SendCommandInput{
		SessionToken:      &sessionToken,
		AbortTransaction: &types.AbortTransactionRequest{},
	})
	return err
}

func (t *transportQLDBSession) EndSession(ctx context.Context, sessionToken string) error {
	_, err := t.client.SendCommand(ctx, &qldbsession.SendCommandInput{
		SessionToken: &sessionToken,
		EndSession:   &types.EndSessionRequest{},
	})
	return err
}

func toExecResult(p *types.Page, io *types.IOUsage, timing *types.TimingInformation) execResult {
	var res execResult
	if p != nil {
		values := make([][]byte, 0, len(p.Values))
		for _, v := range p.Values {
			values = append(values, v.IonBinary)
		}
		res.Page = page{Values: values, NextPageToken: p.NextPageToken}
	}
	if io != nil && io.ReadIOs != nil {
		res.IO = &ioUsage{ReadIOs: *io.ReadIOs}
	}
	if timing != nil && timing.ProcessingTimeMilliseconds != nil {
		res.Timing = &timingInfo{ProcessingTimeMilliseconds: *timing.ProcessingTimeMilliseconds}
	}
	return res
}
