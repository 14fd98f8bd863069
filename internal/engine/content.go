package engine

import (
	"strings"

	"groupnet-service/internal/models"
)

// PublishPost appends an immutable post to a group. The author must be a
// member and the image reference is mandatory; a caption alone is rejected.
func (e *Engine) PublishPost(groupID, authorID, imageRef, caption string) (models.Post, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return models.Post{}, ErrGroupNotFound
	}
	if !g.isMember(authorID) {
		return models.Post{}, ErrNotAMember
	}
	if imageRef == "" {
		return models.Post{}, ErrMissingImage
	}

	post := models.Post{
		ID:        e.newID(),
		GroupID:   groupID,
		AuthorID:  authorID,
		ImageRef:  imageRef,
		Caption:   caption,
		Timestamp: e.now().UTC(),
	}
	e.posts = append(e.posts, post)
	e.postIDs[post.ID] = struct{}{}
	return post, nil
}

// SendGroupMessage appends a message to a group's own chat.
func (e *Engine) SendGroupMessage(groupID, authorID, text string) (models.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return models.Message{}, ErrGroupNotFound
	}
	if !g.isMember(authorID) {
		return models.Message{}, ErrNotAMember
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyText
	}

	msg := models.Message{
		ID:        e.newID(),
		GroupID:   groupID,
		AuthorID:  authorID,
		Text:      text,
		Timestamp: e.now().UTC(),
	}
	e.messages = append(e.messages, msg)
	e.messageIDs[msg.ID] = struct{}{}
	return msg, nil
}

// SendChannelMessage appends a message to an inter-group channel. The
// author must belong to at least one of the two connected groups.
func (e *Engine) SendChannelMessage(channelID, authorID, text string) (models.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.channels[channelID]
	if !ok {
		return models.Message{}, ErrChannelNotFound
	}
	if !e.userInPairLocked(authorID, ch) {
		return models.Message{}, ErrNotAMember
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyText
	}

	msg := models.Message{
		ID:        e.newID(),
		ChannelID: channelID,
		AuthorID:  authorID,
		Text:      text,
		Timestamp: e.now().UTC(),
	}
	e.messages = append(e.messages, msg)
	e.messageIDs[msg.ID] = struct{}{}
	return msg, nil
}

// MergePost folds an externally delivered post into local state. A post
// already present by id is ignored, so redelivery is harmless.
func (e *Engine) MergePost(post models.Post) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.postIDs[post.ID]; ok {
		return
	}
	e.posts = append(e.posts, post)
	e.postIDs[post.ID] = struct{}{}
}

// MergeMessage folds an externally delivered message into local state,
// idempotently by id.
func (e *Engine) MergeMessage(msg models.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.messageIDs[msg.ID]; ok {
		return
	}
	e.messages = append(e.messages, msg)
	e.messageIDs[msg.ID] = struct{}{}
}

// MergeChannel registers an externally created channel, idempotently by its
// unordered pair.
func (e *Engine) MergeChannel(ch models.InterChannel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := newPairKey(ch.GroupA, ch.GroupB)
	if _, ok := e.channelByPair[key]; ok {
		return
	}
	e.channels[ch.ID] = ch
	e.channelByPair[key] = ch.ID
}
