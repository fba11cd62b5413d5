package bout

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"thepit/internal/credit"
	"thepit/internal/experiment"
	"thepit/internal/llm"
	"thepit/internal/model"
	"thepit/internal/preset"
	"thepit/internal/store"
)

const (
	shareLineMaxTokens  = 80
	shareLineMaxChars   = 140
	shareTranscriptTail = 2000
)

// Execute runs every turn of a validated bout, streaming events through
// onEvent, then persists the outcome and reconciles the ledger or pool.
// On failure it persists the partial transcript, refunds the unused
// reservation, and returns the original error only after reconciliation
// has run. Persistence and reconciliation use a context detached from
// the caller so an abandoned stream cannot skip settlement.
func (s *Service) Execute(ctx context.Context, ec *ExecContext, onEvent func(Event)) (*Result, error) {
	emit := func(ev Event) {
		if onEvent != nil {
			onEvent(ev)
		}
	}
	dbCtx := context.WithoutCancel(ctx)
	started := time.Now()

	log.Info().
		Str("request_id", ec.RequestID).
		Str("bout_id", ec.BoutID).
		Str("preset_id", ec.PresetID).
		Str("model_id", ec.ModelID).
		Int("max_turns", ec.Preset.MaxTurns).
		Str("tier", string(ec.Tier)).
		Msg("bout starting")

	var (
		history      []string
		transcript   []store.TranscriptEntry
		inputTokens  int
		outputTokens int
	)

	runErr := func() error {
		for turn := 0; turn < ec.Preset.MaxTurns; turn++ {
			agentIdx := turn % len(ec.Preset.Agents)
			agent := ec.Preset.Agents[agentIdx]
			color := agent.Color
			if color == "" {
				color = preset.DefaultAgentColor
			}
			emit(TurnEvent{Turn: turn, AgentID: agent.ID, AgentName: agent.Name, Color: color})

			var fullText string
			if scripted, ok := ec.ScriptedTurns[turn]; ok {
				// Scripted turns stand in for the generation call and
				// cost nothing.
				fullText = scripted.Content
				emit(DeltaEvent{Turn: turn, Text: fullText})
			} else {
				injected := ""
				if ec.PromptHook != nil {
					injected = ec.PromptHook(experiment.HookContext{
						Turn:       turn,
						AgentIndex: agentIdx,
						AgentID:    agent.ID,
					})
				}
				system := buildSystemPrompt(agent.SystemPrompt, ec.Format.Instruction, injected)
				user := buildUserPrompt(ec.Topic, ec.Length, ec.Format, history, agent.Name)

				turnStart := time.Now()
				usage, err := s.client.Stream(ctx, llm.Request{
					Model:     s.upstreamModel(ec),
					System:    system,
					User:      user,
					MaxTokens: ec.Length.MaxOutputTokens,
					APIKey:    ec.ByokKey,
				}, func(text string) {
					fullText += text
					emit(DeltaEvent{Turn: turn, Text: text})
				})

				if usage.InputTokens > 0 || usage.OutputTokens > 0 {
					inputTokens += usage.InputTokens
					outputTokens += usage.OutputTokens
				} else {
					inputTokens += s.prices.EstimateTokensFromText(system, 1) + s.prices.EstimateTokensFromText(user, 1)
					outputTokens += s.prices.EstimateTokensFromText(fullText, 1)
				}
				if err != nil {
					return err
				}

				log.Info().
					Str("request_id", ec.RequestID).
					Str("bout_id", ec.BoutID).
					Int("turn", turn).
					Str("agent_id", agent.ID).
					Int("input_tokens", usage.InputTokens).
					Int("output_tokens", usage.OutputTokens).
					Dur("duration", time.Since(turnStart)).
					Msg("turn complete")
			}

			history = append(history, agent.Name+": "+fullText)
			transcript = append(transcript, store.TranscriptEntry{
				Turn:      turn,
				AgentID:   agent.ID,
				AgentName: agent.Name,
				Text:      fullText,
			})
		}
		return nil
	}()

	if runErr != nil {
		s.reconcileError(dbCtx, ec, transcript, inputTokens, outputTokens)
		log.Error().Err(runErr).
			Str("request_id", ec.RequestID).
			Str("bout_id", ec.BoutID).
			Int("turns_completed", len(transcript)).
			Dur("duration", time.Since(started)).
			Msg("bout failed")
		return nil, runErr
	}

	// Best-effort share line; its failure never fails the bout.
	shareLine := s.generateShareLine(ctx, transcript, ec.BoutID)

	if err := s.store.UpdateBoutCompleted(dbCtx, ec.BoutID, transcript, shareLine); err != nil {
		s.reconcileError(dbCtx, ec, transcript, inputTokens, outputTokens)
		return nil, err
	}

	if shareLine != nil {
		emit(ShareLineEvent{Text: *shareLine})
	}

	s.settleCompleted(dbCtx, ec, inputTokens, outputTokens)

	emit(DoneEvent{Status: store.BoutStatusCompleted})

	log.Info().
		Str("request_id", ec.RequestID).
		Str("bout_id", ec.BoutID).
		Int("turns", ec.Preset.MaxTurns).
		Int("input_tokens", inputTokens).
		Int("output_tokens", outputTokens).
		Dur("duration", time.Since(started)).
		Bool("has_share_line", shareLine != nil).
		Msg("bout completed")

	return &Result{
		Transcript:   transcript,
		ShareLine:    shareLine,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// upstreamModel resolves the provider-facing model id. BYOK runs use
// the caller's selection when it is a known id, otherwise the default.
func (s *Service) upstreamModel(ec *ExecContext) string {
	if ec.ModelID != model.Byok {
		return ec.ModelID
	}
	if _, ok := model.FamilyOf(ec.ByokModel); ok {
		return ec.ByokModel
	}
	return model.DefaultFree
}

// settleCompleted trues the preauthorized estimate up to the actual
// token cost. Anonymous pool claims are pre-estimated and not trued up.
func (s *Service) settleCompleted(ctx context.Context, ec *ExecContext, inputTokens, outputTokens int) {
	if !s.cfg.CreditsEnabled || ec.ResearchBypass || ec.UserID == "" {
		return
	}
	actualGBP := s.prices.ComputeCostGBP(inputTokens, outputTokens, ec.ModelID)
	actualMicro := s.prices.ToMicro(actualGBP)
	delta := actualMicro - ec.PreauthMicro

	health := "healthy"
	if delta > 0 {
		health = "leak"
	}
	log.Info().
		Str("request_id", ec.RequestID).
		Str("bout_id", ec.BoutID).
		Str("model_id", ec.ModelID).
		Int64("estimated_micro", ec.PreauthMicro).
		Int64("actual_micro", actualMicro).
		Int64("delta_micro", delta).
		Str("margin_health", health).
		Msg("financial settlement")

	if delta == 0 {
		return
	}
	err := s.ledger.Settle(ctx, ec.UserID, delta, credit.SourceSettlement, map[string]any{
		"presetId":      ec.PresetID,
		"boutId":        ec.BoutID,
		"modelId":       ec.ModelID,
		"inputTokens":   inputTokens,
		"outputTokens":  outputTokens,
		"actualCostGbp": actualGBP,
		"preauthMicro":  ec.PreauthMicro,
		"referenceId":   ec.BoutID,
	})
	if err != nil {
		log.Error().Err(err).Str("bout_id", ec.BoutID).Msg("settlement failed")
	}
}

// reconcileError persists the error state and refunds the unused part
// of whatever was reserved. Runs before the error is surfaced; a failed
// bout must never leave an unreconciled reservation behind.
func (s *Service) reconcileError(ctx context.Context, ec *ExecContext, transcript []store.TranscriptEntry, inputTokens, outputTokens int) {
	if err := s.store.UpdateBoutError(ctx, ec.BoutID, transcript); err != nil {
		log.Error().Err(err).Str("bout_id", ec.BoutID).Msg("error state persist failed")
	}

	actualGBP := s.prices.ComputeCostGBP(inputTokens, outputTokens, ec.ModelID)
	actualMicro := s.prices.ToMicro(actualGBP)

	if s.cfg.CreditsEnabled && ec.UserID != "" && ec.PreauthMicro > 0 {
		refund := ec.PreauthMicro - actualMicro
		if refund > 0 {
			err := s.ledger.ApplyDelta(ctx, ec.UserID, refund, credit.SourceSettlementError, map[string]any{
				"presetId":      ec.PresetID,
				"boutId":        ec.BoutID,
				"modelId":       ec.ModelID,
				"inputTokens":   inputTokens,
				"outputTokens":  outputTokens,
				"actualCostGbp": actualGBP,
				"preauthMicro":  ec.PreauthMicro,
				"referenceId":   ec.BoutID,
			})
			if err != nil {
				log.Error().Err(err).Str("bout_id", ec.BoutID).Msg("error-path refund failed")
			}
		}
	}

	if ec.PoolClaimedMicro > 0 {
		refund := ec.PoolClaimedMicro - actualMicro
		if refund > 0 {
			log.Info().Str("bout_id", ec.BoutID).Int64("refund_micro", refund).Msg("refunding trial pool on error")
			if err := s.pool.Refund(ctx, refund); err != nil {
				log.Error().Err(err).Str("bout_id", ec.BoutID).Msg("pool refund failed")
			}
		}
	}
}

// generateShareLine produces the tweet-length summary from the tail of
// the transcript. Always platform-funded on the default model.
func (s *Service) generateShareLine(ctx context.Context, transcript []store.TranscriptEntry, boutID string) *string {
	lines := make([]string, len(transcript))
	for i, entry := range transcript {
		lines[i] = entry.AgentName + ": " + entry.Text
	}
	full := strings.Join(lines, "\n")
	if len(full) > shareTranscriptTail {
		full = full[len(full)-shareTranscriptTail:]
	}

	var sb strings.Builder
	_, err := s.client.Stream(ctx, llm.Request{
		Model:     model.DefaultFree,
		User:      buildSharePrompt(full),
		MaxTokens: shareLineMaxTokens,
	}, func(text string) {
		sb.WriteString(text)
	})
	if err != nil {
		log.Warn().Err(err).Str("bout_id", boutID).Msg("share line generation failed")
		return nil
	}

	line := strings.Trim(strings.TrimSpace(sb.String()), `"'`)
	if line == "" {
		return nil
	}
	if len(line) > shareLineMaxChars {
		line = strings.TrimRight(line[:shareLineMaxChars-3], " ") + "..."
	}
	return &line
}
